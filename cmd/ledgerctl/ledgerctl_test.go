package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveColumn(t *testing.T) {
	headers := []string{"Item", "Room", "Qty"}

	idx, err := resolveColumn(headers, "room")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = resolveColumn(headers, "3")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = resolveColumn(headers, "none")
	require.NoError(t, err)
	assert.Equal(t, domain.NoColumn, idx)

	_, err = resolveColumn(headers, "4")
	assert.ErrorIs(t, err, domain.ErrInvalidMapping)
	_, err = resolveColumn(headers, "3abc")
	assert.ErrorIs(t, err, domain.ErrInvalidMapping)
	_, err = resolveColumn(headers, "cabinet")
	assert.ErrorIs(t, err, domain.ErrInvalidMapping)
}

func TestFlagConfirmer(t *testing.T) {
	var out bytes.Buffer
	headers := []string{"Item", "Room", "Qty", "Notes"}
	suggested := domain.EmptyMapping()
	suggested.Part, suggested.Location, suggested.Quantity = 0, 1, 2

	m, ok, err := flagConfirmer{
		out:     &out,
		columns: columnFlags{description: "Notes", location: "none"},
	}.Confirm(context.Background(), headers, suggested)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, m.Description)
	assert.Equal(t, domain.NoColumn, m.Location)
	assert.Equal(t, 0, m.Part)
	assert.Contains(t, out.String(), "Notes [4]")

	_, ok, err = flagConfirmer{out: &out, dryRun: true}.Confirm(context.Background(), headers, suggested)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCLI_ImportReportBackupRestore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("AUDIT_BACKEND", "none")

	src := writeFile(t, dir, "bom.csv", "Item,Room,Qty,Desc\nP1,A1,2,Resistor\nP2,B1,3,Capacitor\n")

	out, err := runCLI(t, "import", src, "--job", "JOB1")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2/2 rows into JOB1 (merge)")
	assert.Contains(t, out, "parts: 2 new, 0 existing, 0 removed")

	out, err = runCLI(t, "stats", "JOB1")
	require.NoError(t, err)
	assert.Contains(t, out, "JOB1: 0/5 placed (0%) across 2 cells")

	out, err = runCLI(t, "export", "JOB1", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Job,Part Number,Location,Required Qty,Assigned Qty,Remaining Qty,Description")
	assert.Contains(t, out, "Capacitor")

	backupPath := filepath.Join(dir, "backup.json")
	_, err = runCLI(t, "backup", "-o", backupPath, "--selected", "JOB1")
	require.NoError(t, err)

	_, err = runCLI(t, "import", writeFile(t, dir, "JOB2.csv", "Item,Room,Qty\nP9,C1,1\n"), "--dry-run")
	require.NoError(t, err)

	out, err = runCLI(t, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "JOB2")

	out, err = runCLI(t, "restore", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 1 jobs")

	out, err = runCLI(t, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "JOB1")
	assert.NotContains(t, out, "JOB2")
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("AUDIT_BACKEND", "none")

	_, err := runCLI(t, "stats", "MISSING")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = runCLI(t, "import", writeFile(t, dir, "x.csv", "Item,Qty\nP1,1\n"), "--strategy", "overwrite")
	assert.Error(t, err)

	_, err = runCLI(t, "restore", writeFile(t, dir, "bad.json", `{"version":99}`))
	assert.ErrorIs(t, err, domain.ErrInvalidBackup)
}
