package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tair/part-ledger/internal/ledger/usecase/command"
	"github.com/tair/part-ledger/internal/ledger/usecase/query"
)

func newBackupCmd(sess func() *session) *cobra.Command {
	var selected, output string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write every job to one JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := query.NewBackupHandler(sess().app.Repo).Handle(cmd.Context(), query.BackupQuery{SelectedJobID: selected})
			if err != nil {
				return err
			}
			content, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode backup: %w", err)
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(content, '\n'))
				return err
			}
			if err := os.WriteFile(output, content, 0o600); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Backed up %d jobs to %s\n", len(payload.State.Jobs), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&selected, "selected", "", "Job id recorded as selected")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newRestoreCmd(sess func() *session) *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Replace every job with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			result, err := command.NewRestoreHandler(sess().app.Ledger).Handle(cmd.Context(), command.RestoreCommand{Payload: raw})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d jobs\n", result.Jobs)
			return nil
		},
	}
}
