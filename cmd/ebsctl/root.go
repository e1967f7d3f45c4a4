package main

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	ebs "github.com/caarlos0/homekit-ebs"
	logp "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Config holds the account credentials. Flags override the environment.
type Config struct {
	Server string `env:"SERVER"`
	Email  string `env:"EMAIL"`
	Pin    string `env:"PIN"`
	Debug  bool   `env:"DEBUG"`
}

type app struct {
	cfg  Config
	opts []ebs.Option
}

func (a *app) dial() (*ebs.Alarm, error) {
	var missing []string
	if a.cfg.Server == "" {
		missing = append(missing, "server")
	}
	if a.cfg.Email == "" {
		missing = append(missing, "email")
	}
	if a.cfg.Pin == "" {
		missing = append(missing, "pin")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required settings: %v", missing)
	}

	log.Debug("dialing", "server", ebs.NormalizeAddress(a.cfg.Server), "email", a.cfg.Email)
	alarm, err := ebs.Dial(a.cfg.Server, a.cfg.Email, a.cfg.Pin, a.opts...)
	if err != nil {
		var authErr *ebs.AuthenticationError
		if errors.As(err, &authErr) {
			return nil, fmt.Errorf("could not log in as %s: %w", a.cfg.Email, err)
		}
		return nil, fmt.Errorf("could not connect to %s: %w", a.cfg.Server, err)
	}
	return alarm, nil
}

func newRootCmd(opts ...ebs.Option) *cobra.Command {
	app := &app{opts: opts}

	rootCmd := &cobra.Command{
		Use:           "ebsctl",
		Short:         "Check and change the state of EBS Security alarm partitions",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if app.cfg.Debug {
				log.SetLevel(logp.DebugLevel)
				ebs.SetLogLevel(logp.DebugLevel)
			}
		},
	}

	if err := env.Parse(&app.cfg); err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return fmt.Errorf("could not parse env: %w", err)
		}
		return rootCmd
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.cfg.Server, "server", app.cfg.Server, "Server address, e.g. ac-ebs.juwentus.pl/ava ($SERVER)")
	flags.StringVar(&app.cfg.Email, "email", app.cfg.Email, "Account email ($EMAIL)")
	flags.StringVar(&app.cfg.Pin, "pin", app.cfg.Pin, "Account PIN ($PIN)")
	flags.BoolVar(&app.cfg.Debug, "debug", app.cfg.Debug, "Enable debug logs ($DEBUG)")

	rootCmd.AddCommand(
		newStatusCmd(app),
		newArmCmd(app),
		newDisarmCmd(app),
		newSetCmd(app),
	)

	return rootCmd
}
