package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tair/part-ledger/internal/ledger/usecase/query"
)

func newJobsCmd(sess func() *session) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List jobs with their completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := query.NewListJobsHandler(sess().app.Repo).Handle(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB\tNAME\tPARTS\tASSIGNED\tREQUIRED\tPCT\tPENDING")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d%%\t%t\n",
					j.ID, j.Name, j.PartCount, j.Stats.AssignedTotal, j.Stats.RequiredTotal, j.Stats.Pct, j.MappingPending)
			}
			return tw.Flush()
		},
	}
}

func newStatsCmd(sess func() *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats JOB",
		Short: "Print required and assigned totals of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := query.NewJobStatsHandler(sess().app.Repo).Handle(cmd.Context(), query.JobStatsQuery{JobID: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d placed (%d%%) across %d cells\n",
				args[0], stats.AssignedTotal, stats.RequiredTotal, stats.Pct, stats.CellCount)
			return nil
		},
	}
}

func newExportCmd(sess func() *session) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export JOB",
		Short: "Write the placement report of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := query.NewExportReportHandler(sess().app.Repo).Handle(cmd.Context(), query.ExportQuery{
				JobID:  args[0],
				Format: format,
			})
			if err != nil {
				return err
			}

			switch output {
			case "-":
				_, err = cmd.OutOrStdout().Write(result.Content)
				return err
			case "":
				output = result.FileName
			}
			if err := os.WriteFile(output, result.Content, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", query.FormatCSV, "Report format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default: <job>-report.<format>)")
	return cmd
}
