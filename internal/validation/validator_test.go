package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/errors"
	"github.com/shelfkeeper/shelfkeeper/internal/validation"
)

type volumeRequest struct {
	Title     string   `json:"title" validate:"required,max=500"`
	Ownership string   `json:"ownership" validate:"ownership"`
	Progress  string   `json:"progress,omitempty" validate:"omitempty,progress"`
	Status    string   `json:"status,omitempty" validate:"collection_status"`
	Rating    *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Tags      []string `json:"tags,omitempty" validate:"max=3"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	rating := 8.5

	err := v.Validate(volumeRequest{
		Title:     "Berserk Deluxe 1",
		Ownership: "owned",
		Progress:  "read",
		Rating:    &rating,
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()
	tooHigh := 11.0

	tests := []struct {
		name      string
		req       volumeRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing title",
			req:       volumeRequest{Ownership: "owned"},
			wantField: "title",
			wantMsg:   "is required",
		},
		{
			name:      "unknown ownership",
			req:       volumeRequest{Title: "x", Ownership: "borrowed"},
			wantField: "ownership",
			wantMsg:   "must be one of: owned wishlist preordered for_sale",
		},
		{
			name:      "unknown progress",
			req:       volumeRequest{Title: "x", Ownership: "owned", Progress: "skimmed"},
			wantField: "progress",
			wantMsg:   "must be one of: unread reading read dropped",
		},
		{
			name:      "unknown collection status",
			req:       volumeRequest{Title: "x", Ownership: "owned", Status: "paused"},
			wantField: "status",
			wantMsg:   "must be one of: ongoing completed hiatus cancelled",
		},
		{
			name:      "rating out of range",
			req:       volumeRequest{Title: "x", Ownership: "owned", Rating: &tooHigh},
			wantField: "rating",
			wantMsg:   "must be less than or equal to 10",
		},
		{
			name:      "too many tags",
			req:       volumeRequest{Title: "x", Ownership: "owned", Tags: []string{"a", "b", "c", "d"}},
			wantField: "tags",
			wantMsg:   "must not have more than 3 entries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Message, tt.wantField)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_EmptyCollectionStatusIsAllowed(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(volumeRequest{Title: "x", Ownership: "wishlist"}))
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	require.NoError(t, v.Var("email", "reader@example.com", "required,email"))

	err := v.Var("email", "not-an-email", "required,email")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Equal(t, "email must be a valid email address", err.Error())
}
