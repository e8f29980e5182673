// Command ledgerctl drives the part ledger from a terminal: import BOM files,
// print progress, export reports and move whole-ledger backups around.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tair/part-ledger/internal/config"
	"github.com/tair/part-ledger/internal/ledger"
	"github.com/tair/part-ledger/pkg/logger"
)

// session is the ledger opened for the running command
type session struct {
	cfg     *config.Config
	app     *ledger.App
	cleanup func()
}

func (s *session) close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func openSession(ctx context.Context, verbose bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger.InitWithWriter(os.Stderr, cfg.ServiceName, true)
	if verbose {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel("warn")
	}

	sub, closeSubstrate, err := ledger.OpenSubstrate(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Each invocation gets its own registry; nothing scrapes a CLI
	app, cleanup, err := ledger.InitializeApp(cfg, sub, prometheus.NewRegistry())
	if err != nil {
		closeSubstrate()
		return nil, err
	}

	return &session{
		cfg: cfg,
		app: app,
		cleanup: func() {
			cleanup()
			closeSubstrate()
		},
	}, nil
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		sess    *session
	)

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Part placement ledger command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			sess = s
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if sess != nil {
				sess.close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	current := func() *session { return sess }
	root.AddCommand(
		newImportCmd(current),
		newJobsCmd(current),
		newStatsCmd(current),
		newExportCmd(current),
		newBackupCmd(current),
		newRestoreCmd(current),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
