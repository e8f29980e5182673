package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/usecase/command"
)

type importOptions struct {
	jobID      string
	noHeader   bool
	strategy   string
	replaceQty bool
	dryRun     bool
	columns    columnFlags
}

// columnFlags override single roles of the suggested mapping. Unset flags
// keep the suggestion; "none" unmaps the role.
type columnFlags struct {
	part, location, location2, quantity, description string
}

// flagConfirmer prints the suggested mapping and applies the column flags
type flagConfirmer struct {
	out     io.Writer
	columns columnFlags
	dryRun  bool
}

func (c flagConfirmer) Confirm(_ context.Context, headers []string, suggested domain.Mapping) (domain.Mapping, bool, error) {
	m := suggested
	overrides := []struct {
		flag string
		idx  *int
	}{
		{c.columns.part, &m.Part},
		{c.columns.location, &m.Location},
		{c.columns.location2, &m.Location2},
		{c.columns.quantity, &m.Quantity},
		{c.columns.description, &m.Description},
	}
	for _, o := range overrides {
		if o.flag == "" {
			continue
		}
		idx, err := resolveColumn(headers, o.flag)
		if err != nil {
			return m, false, err
		}
		*o.idx = idx
	}

	fmt.Fprintln(c.out, "Column mapping:")
	printRole(c.out, "part", headers, m.Part)
	printRole(c.out, "location", headers, m.Location)
	printRole(c.out, "location2", headers, m.Location2)
	printRole(c.out, "quantity", headers, m.Quantity)
	printRole(c.out, "description", headers, m.Description)

	if c.dryRun {
		fmt.Fprintln(c.out, "Dry run: rows left pending on the job")
		return m, false, nil
	}
	return m, true, nil
}

// resolveColumn accepts a header name (case-insensitive), a 1-based column
// number or "none"
func resolveColumn(headers []string, v string) (int, error) {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "none") {
		return domain.NoColumn, nil
	}
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), v) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= len(headers) {
		return n - 1, nil
	}
	return domain.NoColumn, fmt.Errorf("%w: no column %q", domain.ErrInvalidMapping, v)
}

func printRole(w io.Writer, role string, headers []string, idx int) {
	name := "(none)"
	if idx >= 0 && idx < len(headers) {
		name = fmt.Sprintf("%s [%d]", headers[idx], idx+1)
	}
	fmt.Fprintf(w, "  %-12s %s\n", role, name)
}

func newImportCmd(sess func() *session) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a BOM export (.csv, .xlsx) into a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), sess(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.jobID, "job", "", "Job id (default: file name without extension)")
	cmd.Flags().BoolVar(&opts.noHeader, "no-header", false, "First row is data, not headers")
	cmd.Flags().StringVar(&opts.strategy, "strategy", string(command.StrategyMerge), "Import strategy: merge or replace")
	cmd.Flags().BoolVar(&opts.replaceQty, "replace-qty", false, "On merge, overwrite quantities instead of adding")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the mapping and leave the rows pending")
	cmd.Flags().StringVar(&opts.columns.part, "part-col", "", "Part number column (header name or 1-based number)")
	cmd.Flags().StringVar(&opts.columns.location, "location-col", "", "Location column")
	cmd.Flags().StringVar(&opts.columns.location2, "location2-col", "", "Secondary location column")
	cmd.Flags().StringVar(&opts.columns.quantity, "qty-col", "", "Quantity column")
	cmd.Flags().StringVar(&opts.columns.description, "desc-col", "", "Description column")

	return cmd
}

func runImport(ctx context.Context, s *session, out io.Writer, path string, opts importOptions) error {
	strategy, err := command.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ingest := command.NewIngestFileHandler(s.app.Ledger)
	confirm := command.NewConfirmMappingHandler(s.app.Ledger, s.app.Importer)
	confirmer := flagConfirmer{out: out, columns: opts.columns, dryRun: opts.dryRun}
	handler := command.NewImportFileHandler(ingest, confirm, confirmer)

	result, err := handler.Handle(ctx, command.ImportFileCommand{
		IngestFileCommand: command.IngestFileCommand{
			JobID:     opts.jobID,
			FileName:  filepath.Base(path),
			Content:   content,
			HasHeader: !opts.noHeader,
		},
		Strategy:          strategy,
		ReplaceQtyOnMerge: opts.replaceQty,
		Progress: func(processed, total int) {
			fmt.Fprintf(os.Stderr, "\r%d/%d rows", processed, total)
			if processed == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	})
	if opts.dryRun && errors.Is(err, domain.ErrMappingCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d/%d rows into %s (%s)\n", result.TuplesApplied, result.TuplesTotal, result.JobID, result.Strategy)
	fmt.Fprintf(out, "  parts: %d new, %d existing, %d removed\n", result.PartsCreated, result.PartsExisting, result.PartsDeleted)
	fmt.Fprintf(out, "  cells: %d new, %d updated\n", result.CellsCreated, result.CellsUpdated)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  failed %s @ %s: %s\n", e.Tuple.PartNumber, e.Tuple.Location, e.Error)
	}
	if result.Cancelled {
		return fmt.Errorf("import cancelled after %d rows", result.TuplesApplied)
	}
	return nil
}
