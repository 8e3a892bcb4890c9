package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	cause := errors.New("connection refused")

	storeErr := Store("read readings", cause)
	assert.ErrorIs(t, storeErr, ErrStore)
	assert.ErrorIs(t, storeErr, cause)
	assert.NotErrorIs(t, storeErr, ErrArchive)
	assert.Equal(t, "store error: read readings: connection refused", storeErr.Error())

	archiveErr := fmt.Errorf("sensor 3: %w", Archive("put item", cause))
	assert.ErrorIs(t, archiveErr, ErrArchive)
	assert.NotErrorIs(t, archiveErr, ErrStore)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Store("noop", nil))
	assert.NoError(t, Archive("noop", nil))
}

func TestWrapDoesNotDoubleWrapSameKind(t *testing.T) {
	inner := Store("list sensors", errors.New("timeout"))
	outer := Store("load entities", inner)
	assert.Same(t, inner, outer)
}

func TestConfig(t *testing.T) {
	err := Config("%s is required", "DATABASE_URI")
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "DATABASE_URI is required")
}
