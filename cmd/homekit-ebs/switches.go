package main

import (
	"fmt"
	"net/http"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
	ebs "github.com/caarlos0/homekit-ebs"
)

// PartitionSwitch arms and disarms a single partition.
type PartitionSwitch struct {
	*accessory.A
	Switch *service.Switch
	number int
}

func (sw *PartitionSwitch) Update(partitions []ebs.Partition) {
	for _, part := range partitions {
		if part.Number != sw.number {
			continue
		}
		if armed := part.State.Armed(); sw.Switch.On.Value() != armed {
			sw.Switch.On.SetValue(armed)
			log.Info("partition", "number", part.Number, "name", part.Name, "armed", armed)
		}
		return
	}
}

func partitionName(partitions []ebs.Partition, n int) string {
	for _, part := range partitions {
		if part.Number == n && part.Name != "" {
			return part.Name
		}
	}
	return fmt.Sprintf("Partition %d", n)
}

func setupSwitches(execute Executor, cfg Config, partitions []ebs.Partition) []*PartitionSwitch {
	var switches []*PartitionSwitch
	for i, number := range cfg.Switches {
		a := accessory.NewSwitch(accessory.Info{
			Name:         partitionName(partitions, number),
			Manufacturer: manufacturer,
		})
		a.Id = uint64(100 + i)
		a.Switch.On.SetValueRequestFunc = func(value interface{}, _ *http.Request) (response interface{}, code int) {
			v := value.(bool)
			log.Info("set partition armed", "partition", number, "armed", v)
			if err := execute(func(alarm *ebs.Alarm) error {
				return alarm.SetArmed(number, v)
			}); err != nil {
				log.Error("failed to set partition", "partition", number, "armed", v, "err", err)
				return nil, hap.JsonStatusResourceBusy
			}
			return nil, hap.JsonStatusSuccess
		}
		sw := &PartitionSwitch{A: a.A, Switch: a.Switch, number: number}
		sw.Update(partitions)
		switches = append(switches, sw)
	}
	return switches
}
