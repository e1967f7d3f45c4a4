package main

import (
	"net/http"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	ebs "github.com/caarlos0/homekit-ebs"
	"golang.org/x/exp/slices"
)

type SecuritySystem struct {
	*accessory.A
	SecuritySystem *service.SecuritySystem

	cfg     Config
	execute Executor
}

func NewSecuritySystem(info accessory.Info, cfg Config, execute Executor) *SecuritySystem {
	a := &SecuritySystem{
		cfg:     cfg,
		execute: execute,
	}
	a.A = accessory.New(info, accessory.TypeSecuritySystem)

	a.SecuritySystem = service.NewSecuritySystem()
	a.AddS(a.SecuritySystem.S)

	a.SecuritySystem.SecuritySystemTargetState.SetValueRequestFunc = a.updateHandler

	return a
}

func (a *SecuritySystem) Update(partitions []ebs.Partition) {
	state := a.cfg.getAlarmState(partitions)
	armStateGauge.Set(float64(state))
	if state < 0 {
		return
	}
	if a.SecuritySystem.SecuritySystemCurrentState.Value() != state {
		err := a.SecuritySystem.SecuritySystemCurrentState.SetValue(state)
		log.Info("set current state", "state", state, "err", err)
	}
}

func (a *SecuritySystem) updateHandler(
	v interface{},
	_ *http.Request,
) (response interface{}, code int) {
	target := v.(int)
	if target == characteristic.SecuritySystemTargetStateDisarm {
		log.Info("disarm", "partitions", a.cfg.allPartitions())
		if err := a.disarm(a.cfg.allPartitions()); err != nil {
			log.Error("could not disarm", "err", err)
			return nil, hap.JsonStatusResourceBusy
		}
		return nil, hap.JsonStatusSuccess
	}

	mode, ok := a.cfg.modeFor(target)
	if !ok {
		log.Warn("no partitions configured for target state", "target", target)
		return nil, hap.JsonStatusResourceDoesNotExist
	}

	// Partitions armed by a previous mode but not part of this one are
	// disarmed first, so modes can be switched without going through
	// disarm.
	var others []int
	for _, part := range a.cfg.allPartitions() {
		if !slices.Contains(mode.partitions, part) {
			others = append(others, part)
		}
	}
	if err := a.disarm(others); err != nil {
		log.Error("could not disarm", "err", err)
		return nil, hap.JsonStatusResourceBusy
	}

	for _, part := range mode.partitions {
		log.Info("arm "+mode.name, "partition", part)
		if err := a.execute(func(alarm *ebs.Alarm) error {
			return alarm.SetState(part, mode.state)
		}); err != nil {
			log.Error("could not arm", "mode", mode.name, "partition", part, "err", err)
			// some partitions might be armed and others not, so we
			// disarm everything to not leave it in a weird state.
			_ = a.SecuritySystem.SecuritySystemTargetState.SetValue(
				characteristic.SecuritySystemTargetStateDisarm,
			)
			if err := a.disarm(a.cfg.allPartitions()); err != nil {
				log.Error("could not disarm", "err", err)
			}
			return nil, hap.JsonStatusResourceBusy
		}
	}
	return nil, hap.JsonStatusSuccess
}

func (a *SecuritySystem) disarm(partitions []int) error {
	if len(partitions) == 0 {
		return nil
	}
	return a.execute(func(alarm *ebs.Alarm) error {
		// partitions may have been armed from the keypad or the app since
		// the last poll.
		if err := alarm.Refresh(); err != nil {
			return err
		}
		for _, part := range partitions {
			armed, err := alarm.IsArmed(part)
			if err != nil {
				return err
			}
			if !armed {
				continue
			}
			if err := alarm.SetArmed(part, false); err != nil {
				return err
			}
		}
		return nil
	})
}
