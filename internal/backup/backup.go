package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json/v2"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

// Service creates and restores backup archives of a store.
type Service struct {
	store   *store.Store
	version string
	logger  *slog.Logger
}

// NewService creates a Service. version is recorded in every manifest.
func NewService(s *store.Store, version string, log *slog.Logger) *Service {
	return &Service{store: s, version: version, logger: logger.OrDiscard(log)}
}

// Result describes a written archive.
type Result struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   Counts        `json:"counts"`
	Checksum string        `json:"checksum"`
	Duration time.Duration `json:"-"`
}

// DefaultFileName names an archive after its creation time.
func DefaultFileName(now time.Time) string {
	return fmt.Sprintf("backup-%s.shelfkeeper.zip", now.Format("2006-01-02-150405"))
}

// Export writes every user, collection and item to a zip archive at path.
// The archive is written to a temporary file and renamed on success.
func (s *Service) Export(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	manifest := &Manifest{
		Version:    FormatVersion,
		CreatedAt:  start.UTC(),
		AppVersion: s.version,
	}

	// Dependency order: restore replays entries in the same order.
	steps := []struct {
		name string
		fn   func(context.Context, *zip.Writer) (int, error)
		dest *int
	}{
		{usersFile, s.exportUsers, &manifest.Counts.Users},
		{collectionsFile, s.exportCollections, &manifest.Counts.Collections},
		{itemsFile, s.exportItems, &manifest.Counts.Items},
	}
	for _, step := range steps {
		n, err := step.fn(ctx, zw)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", step.name, err)
		}
		*step.dest = n
	}

	// Written last so it carries the final counts.
	mw, err := zw.Create(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := json.MarshalWrite(mw, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:     path,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Checksum: hex.EncodeToString(hash.Sum(nil)),
		Duration: time.Since(start),
	}
	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"users", result.Counts.Users,
		"collections", result.Counts.Collections,
		"items", result.Counts.Items,
		"duration", result.Duration)
	return result, nil
}

func (s *Service) exportUsers(ctx context.Context, zw *zip.Writer) (int, error) {
	return writeAll(zw, usersFile, s.store.Users.List(ctx))
}

func (s *Service) exportCollections(ctx context.Context, zw *zip.Writer) (int, error) {
	return writeAll(zw, collectionsFile, s.store.AllCollections(ctx))
}

func (s *Service) exportItems(ctx context.Context, zw *zip.Writer) (int, error) {
	return writeAll(zw, itemsFile, s.store.AllItems(ctx))
}

func writeAll[T any](zw *zip.Writer, name string, seq iter.Seq2[*T, error]) (int, error) {
	w, err := newEntryWriter(zw, name)
	if err != nil {
		return 0, err
	}
	for v, err := range seq {
		if err != nil {
			return w.count, err
		}
		if err := w.write(v); err != nil {
			return w.count, err
		}
	}
	return w.count, nil
}
