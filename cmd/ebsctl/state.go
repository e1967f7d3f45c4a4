package main

import (
	"fmt"
	"strconv"
	"strings"

	ebs "github.com/caarlos0/homekit-ebs"
	"github.com/spf13/cobra"
)

func newArmCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "arm PARTITION",
		Short: "Arm a partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setArmed(cmd, app, args[0], true)
		},
	}
}

func newDisarmCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disarm PARTITION",
		Short: "Disarm a partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setArmed(cmd, app, args[0], false)
		},
	}
}

func newSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set PARTITION STATE",
		Short:     "Set a partition to disarmed, armed, partial or night",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"disarmed", "armed", "partial", "night"},
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePartition(args[0])
			if err != nil {
				return err
			}
			state, err := parseState(args[1])
			if err != nil {
				return err
			}

			alarm, err := app.dial()
			if err != nil {
				return err
			}
			if err := alarm.SetState(n, state); err != nil {
				return err
			}
			return printPartition(cmd, alarm, n)
		},
	}
}

func setArmed(cmd *cobra.Command, app *app, arg string, arm bool) error {
	n, err := parsePartition(arg)
	if err != nil {
		return err
	}

	alarm, err := app.dial()
	if err != nil {
		return err
	}
	if err := alarm.SetArmed(n, arm); err != nil {
		return err
	}
	return printPartition(cmd, alarm, n)
}

func printPartition(cmd *cobra.Command, alarm *ebs.Alarm, n int) error {
	p, err := alarm.Partition(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "partition %d (%s): %s\n", p.Number, p.Name, p.State)
	return err
}

func parsePartition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid partition %q: must be a number starting at 1", s)
	}
	return n, nil
}

func parseState(s string) (ebs.State, error) {
	switch strings.ToLower(s) {
	case "disarmed", "disarm", "0":
		return ebs.StateDisarmed, nil
	case "armed", "arm", "1":
		return ebs.StateArmed, nil
	case "partial", "stay", "2":
		return ebs.StatePartial, nil
	case "night", "3":
		return ebs.StateNight, nil
	default:
		return ebs.StateDisarmed, fmt.Errorf("invalid state %q: %w", s, ebs.ErrInvalidState)
	}
}
