package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Version statuses. A version is pending until its bytes are verified
// against the declared hash.
type VersionStatus string

const (
	VersionPending VersionStatus = "PENDING"
	VersionFinal   VersionStatus = "FINAL"
)

// Document is the attachment slot for a business entity. One row per
// (entity_type, entity_id, type_code); MainVersionID always points at the
// latest accepted version.
type Document struct {
	ID            uuid.UUID  `json:"id"`
	EntityType    string     `json:"entity_type"`
	EntityID      int64      `json:"entity_id"`
	TypeCode      string     `json:"type_code"`
	MainVersionID *uuid.UUID `json:"main_version_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DocumentVersion is one uploaded revision. Hash is the SHA-256 of the
// content, declared at creation and verified before the version becomes
// canonical.
type DocumentVersion struct {
	ID         uuid.UUID     `json:"id"`
	DocumentID uuid.UUID     `json:"document_id"`
	Version    int           `json:"version"`
	FileName   string        `json:"file_name"`
	Hash       string        `json:"hash"`
	SizeBytes  int64         `json:"size_bytes"`
	Status     VersionStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("documents: not found")
	ErrValidation   = errors.New("documents: validation failed")
	ErrHashMismatch = errors.New("documents: content hash does not match declared hash")
	ErrNotPending   = errors.New("documents: version is not pending")
)
