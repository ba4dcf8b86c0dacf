package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResult struct {
	rows int64
	err  error
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestGuardApplied(t *testing.T) {
	applied, err := guardApplied(stubResult{rows: 1})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = guardApplied(stubResult{rows: 0})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestGuardApplied_RowsAffectedError(t *testing.T) {
	driverErr := errors.New("rows affected unsupported")
	applied, err := guardApplied(stubResult{err: driverErr})
	assert.ErrorIs(t, err, driverErr)
	assert.False(t, applied)
}
