package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

func TestRenameJob(t *testing.T) {
	f := newFixture(t, nil, 50)
	f.seed(t, "JOB1", bom...)
	f.seed(t, "JOB2", bom[:1]...)
	rename := NewRenameJobHandler(f.ledger)
	ctx := context.Background()

	renamed, err := rename.Handle(ctx, RenameJobCommand{JobID: "JOB1", NewJobID: "JOB2"})
	require.NoError(t, err)
	assert.False(t, renamed)
	assert.Len(t, f.job(t, "JOB1").Parts, 2)

	renamed, err = rename.Handle(ctx, RenameJobCommand{JobID: "JOB1", NewJobID: "PANEL-7"})
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.Len(t, f.job(t, "PANEL-7").Parts, 2)

	_, err = rename.Handle(ctx, RenameJobCommand{JobID: "MISSING", NewJobID: "X"})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestDeleteJob(t *testing.T) {
	f := newFixture(t, nil, 50)
	f.seed(t, "JOB1", bom...)
	del := NewDeleteJobHandler(f.ledger)

	require.NoError(t, del.Handle(context.Background(), DeleteJobCommand{JobID: "JOB1"}))
	_, err := f.ledger.Job(context.Background(), "JOB1")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	assert.ErrorIs(t, del.Handle(context.Background(), DeleteJobCommand{JobID: "JOB1"}), domain.ErrJobNotFound)
	assert.Error(t, del.Handle(context.Background(), DeleteJobCommand{}))
}
