// Package service holds the business rules between the HTTP API and the
// store: input validation, ID and timestamp assignment, text normalization
// and the translation of storage errors into domain errors.
package service

import (
	"errors"
	"fmt"
	"time"

	domainerrors "github.com/shelfkeeper/shelfkeeper/internal/errors"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// storeError converts a storage error into the matching domain error. Errors
// that are not storage errors are wrapped with op.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *store.Error
	if errors.As(err, &se) {
		return domainerrors.FromCode(domainerrors.CodeForStatus(se.HTTPCode()), se.Message, nil).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
