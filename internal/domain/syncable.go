package domain

import "time"

// Syncable carries the identity and timestamps shared by every persisted record.
// It is embedded in Collection, Item and User.
type Syncable struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	ID        string     `json:"id"`
}

// Touch sets UpdatedAt to now.
func (s *Syncable) Touch() {
	s.TouchAt(time.Now())
}

// TouchAt sets UpdatedAt to the given instant.
func (s *Syncable) TouchAt(t time.Time) {
	s.UpdatedAt = t
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new record.
func (s *Syncable) InitTimestamps() {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// IsDeleted returns true if the record has been soft-deleted.
func (s *Syncable) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted soft-deletes the record.
// UpdatedAt moves too so the deletion is visible to anything reading by modification time.
func (s *Syncable) MarkDeleted() {
	now := time.Now()
	s.DeletedAt = &now
	s.UpdatedAt = now
}
