package backup

import (
	"archive/zip"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

// RestoreOptions configures Restore.
type RestoreOptions struct {
	// DryRun reads and checks the archive without writing anything.
	DryRun bool
}

// RestoreResult reports what was restored, per entity kind. Records whose
// ID already exists are skipped, never overwritten.
type RestoreResult struct {
	Imported Counts         `json:"imported"`
	Skipped  Counts         `json:"skipped"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"-"`
}

// RestoreError is a record that could not be restored.
type RestoreError struct {
	Entry    string `json:"entry"`
	EntityID string `json:"entity_id,omitempty"`
	Error    string `json:"error"`
}

// Inspect reads an archive's manifest and checks its entry counts against it.
func Inspect(path string) (*Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(&zr.Reader)
	if err != nil {
		return nil, err
	}

	var got Counts
	for _, c := range []struct {
		name string
		n    *int
	}{
		{usersFile, &got.Users},
		{collectionsFile, &got.Collections},
		{itemsFile, &got.Items},
	} {
		if *c.n, err = countLines(&zr.Reader, c.name); err != nil {
			return nil, err
		}
	}
	if got != manifest.Counts {
		return nil, fmt.Errorf("%w: manifest lists %+v, archive holds %+v", ErrCorruptedBackup, manifest.Counts, got)
	}
	return manifest, nil
}

// Restore adds the archive's records to the store. Users come first, then
// collections, then items, so every item finds its collection.
func (s *Service) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	start := time.Now()

	if _, err := Inspect(path); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	result := &RestoreResult{}
	steps := []struct {
		name string
		fn   func(context.Context, *zip.Reader, RestoreOptions, *RestoreResult) (imported, skipped int, err error)
		imp  *int
		skip *int
	}{
		{usersFile, s.restoreUsers, &result.Imported.Users, &result.Skipped.Users},
		{collectionsFile, s.restoreCollections, &result.Imported.Collections, &result.Skipped.Collections},
		{itemsFile, s.restoreItems, &result.Imported.Items, &result.Skipped.Items},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		imported, skipped, err := step.fn(ctx, &zr.Reader, opts, result)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", step.name, err)
		}
		*step.imp, *step.skip = imported, skipped

		s.logger.Info("restored entities",
			"entry", step.name,
			"imported", imported,
			"skipped", skipped,
			"dry_run", opts.DryRun)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (s *Service) restoreUsers(ctx context.Context, zr *zip.Reader, opts RestoreOptions, result *RestoreResult) (int, int, error) {
	return restoreAll(ctx, zr, usersFile, opts, result, func(u *domain.User) string { return u.ID }, s.store.RestoreUser)
}

func (s *Service) restoreCollections(ctx context.Context, zr *zip.Reader, opts RestoreOptions, result *RestoreResult) (int, int, error) {
	return restoreAll(ctx, zr, collectionsFile, opts, result, func(c *domain.Collection) string { return c.ID }, s.store.RestoreCollection)
}

func (s *Service) restoreItems(ctx context.Context, zr *zip.Reader, opts RestoreOptions, result *RestoreResult) (int, int, error) {
	return restoreAll(ctx, zr, itemsFile, opts, result, func(it *domain.Item) string { return it.ID }, s.store.RestoreItem)
}

// restoreAll replays one entry. Conflicts count as skipped; other per-record
// failures are collected in result and do not stop the restore.
func restoreAll[T any](
	ctx context.Context,
	zr *zip.Reader,
	name string,
	opts RestoreOptions,
	result *RestoreResult,
	idOf func(*T) string,
	put func(context.Context, *T) error,
) (imported, skipped int, _ error) {
	for v, err := range readEntry[T](zr, name) {
		if err != nil {
			if !isLineError(err) {
				return imported, skipped, err
			}
			result.Errors = append(result.Errors, RestoreError{Entry: name, Error: err.Error()})
			continue
		}
		if opts.DryRun {
			imported++
			continue
		}

		switch err := put(ctx, v); {
		case err == nil:
			imported++
		case errors.Is(err, store.ErrAlreadyExists):
			skipped++
		case ctx.Err() != nil:
			return imported, skipped, ctx.Err()
		default:
			result.Errors = append(result.Errors, RestoreError{Entry: name, EntityID: idOf(v), Error: err.Error()})
		}
	}
	return imported, skipped, nil
}

func readManifest(zr *zip.Reader) (*Manifest, error) {
	rc, err := openEntry(zr, manifestFile)
	if err != nil {
		return nil, ErrInvalidManifest
	}
	defer rc.Close()

	var m Manifest
	if err := json.UnmarshalRead(rc, &m); err != nil {
		return nil, ErrInvalidManifest
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrVersionMismatch, m.Version, FormatVersion)
	}
	return &m, nil
}

// countLines counts the records of an entry, malformed ones included.
func countLines(zr *zip.Reader, name string) (int, error) {
	n := 0
	for _, err := range readEntry[jsontext.Value](zr, name) {
		if err != nil && !isLineError(err) {
			return 0, err
		}
		n++
	}
	return n, nil
}
