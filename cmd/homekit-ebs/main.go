package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/env/v11"
	ebs "github.com/caarlos0/homekit-ebs"
	"github.com/cenkalti/backoff/v4"
	logp "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed index.html
var index []byte

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "homekit",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type Executor = func(func(alarm *ebs.Alarm) error) error

const manufacturer = "EBS Security"

func main() {
	log.Info(
		"homekit-ebs",
		"version", version,
		"commit", commit,
		"date", date,
		"info", "Homekit bridge for EBS Security alarm systems",
	)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(
			"could not parse env",
			"err",
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: ")+"\n",
		)
	}
	if cfg.Debug {
		log.SetLevel(logp.DebugLevel)
		ebs.SetLogLevel(logp.DebugLevel)
	}

	log.Info(
		"loading accessories",
		"server", ebs.NormalizeAddress(cfg.Server),
		"partitions", cfg.modesString(),
		"switches", cfg.Switches,
	)

	alarm, err := dial(cfg)
	if err != nil {
		log.Fatal("could not connect to the alarm system", "err", err)
	}

	sess := &session{
		alarm: alarm,
		dial: func() (*ebs.Alarm, error) {
			return ebs.Dial(cfg.Server, cfg.Email, cfg.Pin)
		},
	}
	execute := sess.execute

	partitions := alarm.Partitions()
	log.Info(
		"got alarm system information",
		"manufacturer", manufacturer,
		"object", alarm.ObjectID(),
		"partitions", len(partitions),
	)

	bridge := accessory.NewBridge(accessory.Info{
		Name:         "Alarm Bridge",
		Manufacturer: manufacturer,
		Firmware:     version,
	})

	security := NewSecuritySystem(accessory.Info{
		Name:         "Alarm",
		SerialNumber: alarm.ObjectID().String(),
		Manufacturer: manufacturer,
	}, cfg, execute)
	security.Id = 2

	if state := cfg.getAlarmState(partitions); state >= 0 {
		err := security.SecuritySystem.SecuritySystemTargetState.SetValue(state)
		log.Info("set target state", "state", state, "err", err)
	}
	security.Update(partitions)
	observePartitions(partitions)

	switches := setupSwitches(execute, cfg, partitions)

	go func() {
		tick := time.NewTicker(cfg.PollInterval)
		for range tick.C {
			var partitions []ebs.Partition
			if err := execute(func(alarm *ebs.Alarm) error {
				if err := alarm.Refresh(); err != nil {
					return err
				}
				partitions = alarm.Partitions()
				return nil
			}); err != nil {
				log.Error("could not get status", "err", err)
				continue
			}

			security.Update(partitions)
			for _, sw := range switches {
				sw.Update(partitions)
			}
			observePartitions(partitions)
		}
	}()

	fs := hap.NewFsStore(cfg.DB)

	server, err := hap.NewServer(
		fs, bridge.A,
		securityAccessories(security, switches)...,
	)
	if err != nil {
		log.Fatal("fail to create server", "error", err)
	}
	server.Addr = cfg.Address
	server.ServeMux().Handle("/metrics", promhttp.Handler())
	server.ServeMux().Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := [5]string{
			"Armed: Stay",
			"Armed: Away",
			"Armed: Night",
			"Disarmed",
			"Alarm Triggered",
		}[security.SecuritySystem.SecuritySystemCurrentState.Value()]

		var items []PageItem
		if err := execute(func(alarm *ebs.Alarm) error {
			for _, part := range alarm.Partitions() {
				items = append(items, PageItem{
					Number: part.Number,
					Name:   part.Name,
					State:  part.State.String(),
					Armed:  part.State.Armed(),
				})
			}
			return nil
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		tpl := template.Must(template.New("index").Parse(string(index)))
		_ = tpl.Execute(w, struct {
			State      string
			Partitions []PageItem
		}{
			State:      state,
			Partitions: items,
		})
	}))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c
		log.Info("stopping server")
		signal.Stop(c)
		cancel()
	}()

	log.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to close server", "err", err)
	}
}

func dial(cfg Config) (*ebs.Alarm, error) {
	var alarm *ebs.Alarm
	err := backoff.RetryNotify(func() error {
		requestCounter.Inc()
		var err error
		alarm, err = ebs.Dial(cfg.Server, cfg.Email, cfg.Pin)
		if err != nil {
			requestErrorCounter.Inc()
			return permanent(err)
		}
		return nil
	}, newBackOff(), notify)
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w", cfg.Server, err)
	}
	return alarm, nil
}

// session serializes access to the alarm and logs in again when the server
// stops accepting the current token.
type session struct {
	mu    sync.Mutex
	alarm *ebs.Alarm
	dial  func() (*ebs.Alarm, error)
}

func (s *session) execute(fn func(alarm *ebs.Alarm) error) error {
	t := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Debugf("got client lock after %s", time.Since(t))

	return backoff.RetryNotify(func() error {
		requestCounter.Inc()
		err := fn(s.alarm)
		if err != nil && rejected(err) {
			log.Warn("request rejected, logging in again", "err", err)
			if err = s.relogin(); err == nil {
				err = fn(s.alarm)
			}
		}
		if err != nil {
			requestErrorCounter.Inc()
			return permanent(err)
		}
		return nil
	}, newBackOff(), notify)
}

func (s *session) relogin() error {
	alarm, err := s.dial()
	if err != nil {
		return fmt.Errorf("could not log in again: %w", err)
	}
	s.alarm = alarm
	return nil
}

// rejected reports whether the server refused a request in a way a new
// session might fix. The API does not tell expired tokens apart from other
// failures, so any API error qualifies.
func rejected(err error) bool {
	if errors.Is(err, ebs.ErrNotLoggedIn) {
		return true
	}
	var authErr *ebs.AuthenticationError
	if errors.As(err, &authErr) {
		return false
	}
	var apiErr *ebs.APIError
	return errors.As(err, &apiErr)
}

func newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Second * 5
	bo.MaxElapsedTime = time.Minute
	return bo
}

func notify(err error, _ time.Duration) {
	log.Error("command to central failed", "err", err)
}

// permanent marks errors that retrying will not fix.
func permanent(err error) error {
	var apiErr *ebs.APIError
	if errors.As(err, &apiErr) ||
		errors.Is(err, ebs.ErrNotLoggedIn) ||
		errors.Is(err, ebs.ErrMultipleObjects) ||
		errors.Is(err, ebs.ErrNoObjects) ||
		errors.Is(err, ebs.ErrPartitionNotFound) ||
		errors.Is(err, ebs.ErrInvalidState) {
		return backoff.Permanent(err)
	}
	return err
}

func securityAccessories(
	alarm *SecuritySystem,
	switches []*PartitionSwitch,
) []*accessory.A {
	result := []*accessory.A{alarm.A}
	for _, sw := range switches {
		result = append(result, sw.A)
	}
	return result
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type PageItem struct {
	Number int
	Name   string
	State  string
	Armed  bool
}
