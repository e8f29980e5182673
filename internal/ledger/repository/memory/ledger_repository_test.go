package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

func TestLedgerRepository_JobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()

	created, err := repo.SaveJob(ctx, domain.NewJob("B", "b.csv"))
	require.NoError(t, err)
	assert.True(t, created)
	_, err = repo.SaveJob(ctx, domain.NewJob("A", "a.csv"))
	require.NoError(t, err)

	job := domain.NewJob("B", "renamed.csv")
	job.PendingImport = &domain.PendingImport{FileName: "renamed.csv", Headers: []string{"Part"}}
	created, err = repo.SaveJob(ctx, job)
	require.NoError(t, err)
	assert.False(t, created)

	jobs, err := repo.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "A", jobs[0].ID)
	assert.Equal(t, "renamed.csv", jobs[1].Name)
	assert.Nil(t, jobs[1].Parts)

	require.NoError(t, repo.RenameJob(ctx, "B", "C"))
	assert.ErrorIs(t, repo.RenameJob(ctx, "C", "A"), domain.ErrJobExists)
	assert.ErrorIs(t, repo.RenameJob(ctx, "B", "D"), domain.ErrJobNotFound)

	require.NoError(t, repo.DeleteJob(ctx, "C"))
	_, err = repo.GetJob(ctx, "C")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.ErrorIs(t, repo.DeleteJob(ctx, "C"), domain.ErrJobNotFound)
}

func TestLedgerRepository_SaveJobKeepsParts(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	_, err := repo.SaveJob(ctx, domain.NewJob("J", "j.csv"))
	require.NoError(t, err)
	_, err = repo.UpsertPart(ctx, "J", "P1", "")
	require.NoError(t, err)

	_, err = repo.SaveJob(ctx, domain.NewJob("J", "again"))
	require.NoError(t, err)

	job, err := repo.GetJob(ctx, "J")
	require.NoError(t, err)
	assert.Contains(t, job.Parts, "P1")
}

func TestLedgerRepository_PartsAndCells(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	_, err := repo.SaveJob(ctx, domain.NewJob("J", "j.csv"))
	require.NoError(t, err)

	created, err := repo.UpsertPart(ctx, "J", "P2", "")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.UpsertPart(ctx, "J", "P2", "Fuse")
	require.NoError(t, err)
	assert.False(t, created)
	_, err = repo.UpsertPart(ctx, "J", "P2", "Ignored")
	require.NoError(t, err)
	_, err = repo.UpsertPart(ctx, "J", "P1", "Relay")
	require.NoError(t, err)

	created, err = repo.UpsertLocationCell(ctx, "J", "P2", "A", 4, 1)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.UpsertLocationCell(ctx, "J", "P2", "A", 6, 1)
	require.NoError(t, err)
	assert.False(t, created)
	_, err = repo.UpsertLocationCell(ctx, "J", "P9", "A", 1, 0)
	assert.ErrorIs(t, err, domain.ErrPartNotFound)

	require.NoError(t, repo.SetAssigned(ctx, "J", "P2", "A", 3))
	assert.ErrorIs(t, repo.SetAssigned(ctx, "J", "P2", "B", 3), domain.ErrPartNotFound)
	require.NoError(t, repo.UpdateAssigned(ctx, "J", "P2", map[string]int{"A": 5, "B": 1}))

	part, err := repo.GetPart(ctx, "J", "P2")
	require.NoError(t, err)
	assert.Equal(t, "Fuse", part.Description)
	assert.Equal(t, map[string]int{"A": 6}, part.Locations)
	assert.Equal(t, map[string]int{"A": 5}, part.Assigned)

	part.Locations["A"] = 100
	again, err := repo.GetPart(ctx, "J", "P2")
	require.NoError(t, err)
	assert.Equal(t, 6, again.Locations["A"], "returned parts must be copies")

	parts, err := repo.ListPartsWithLocations(ctx, "J")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "P1", parts[0].PartNumber)

	n, err := repo.DeleteParts(ctx, "J")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = repo.GetPart(ctx, "J", "P1")
	assert.ErrorIs(t, err, domain.ErrPartNotFound)
}
