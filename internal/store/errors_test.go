package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

func TestError_ErrorWithCause(t *testing.T) {
	err := store.ErrInvalidInput.WithCause(errors.New("bad base64"))

	assert.Equal(t, "invalid input: bad base64", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.HTTPCode())
}

func TestError_SpecificErrorsMatchSentinels(t *testing.T) {
	wrapped := fmt.Errorf("get collection: %w", store.ErrCollectionNotFound)

	assert.ErrorIs(t, wrapped, store.ErrNotFound)
	assert.ErrorIs(t, wrapped, store.ErrCollectionNotFound)
	assert.NotErrorIs(t, wrapped, store.ErrAlreadyExists)
	assert.ErrorIs(t, store.ErrEmailExists, store.ErrAlreadyExists)
	assert.Equal(t, "collection not found", store.ErrCollectionNotFound.Error())
}
