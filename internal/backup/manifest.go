// Package backup writes the whole database to a zip archive of JSONL files
// and restores it again.
package backup

import (
	"errors"
	"time"
)

// FormatVersion is the archive format version. Increment on breaking changes.
const FormatVersion = "1"

// Archive entry names.
const (
	manifestFile    = "manifest.json"
	usersFile       = "entities/users.jsonl"
	collectionsFile = "entities/collections.jsonl"
	itemsFile       = "entities/items.jsonl"
)

var (
	// ErrInvalidManifest indicates the manifest is missing or malformed.
	ErrInvalidManifest = errors.New("invalid or missing manifest")

	// ErrVersionMismatch indicates the archive format is not supported.
	ErrVersionMismatch = errors.New("backup version not supported")

	// ErrCorruptedBackup indicates entry counts disagree with the manifest.
	ErrCorruptedBackup = errors.New("backup integrity check failed")
)

// Manifest describes archive contents.
type Manifest struct {
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	AppVersion string    `json:"app_version,omitempty"`
	Counts     Counts    `json:"counts"`
}

// Counts tracks entity counts per kind.
type Counts struct {
	Users       int `json:"users"`
	Collections int `json:"collections"`
	Items       int `json:"items"`
}
