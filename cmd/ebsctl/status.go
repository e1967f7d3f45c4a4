package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	ebs "github.com/caarlos0/homekit-ebs"
	"github.com/spf13/cobra"
)

type partitionStatus struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	State  string `json:"state"`
	Armed  bool   `json:"armed"`
}

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alarm, err := app.dial()
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), alarm.Partitions(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func writeStatus(w io.Writer, partitions []ebs.Partition, asJSON bool) error {
	statuses := make([]partitionStatus, 0, len(partitions))
	for _, p := range partitions {
		statuses = append(statuses, partitionStatus{
			Number: p.Number,
			Name:   p.Name,
			State:  p.State.String(),
			Armed:  p.State.Armed(),
		})
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tNAME\tSTATE\tARMED")
	for _, s := range statuses {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%v\n", s.Number, s.Name, s.State, s.Armed)
	}
	return tw.Flush()
}
