package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/artha-erp/artha-erp/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// EnsureDocument creates the attachment slot for an entity, or returns the
// existing one when the slot already exists. The unique-race guard lives in
// the repository: insert, and on conflict re-select.
func (s *Service) EnsureDocument(ctx context.Context, entityType string, entityID int64, typeCode string) (Document, bool, error) {
	entityType = strings.TrimSpace(entityType)
	typeCode = strings.TrimSpace(typeCode)
	if entityType == "" || typeCode == "" || entityID <= 0 {
		return Document{}, false, fmt.Errorf("%w: entity type, entity id and type code are required", ErrValidation)
	}
	doc, created, err := s.repo.CreateOrGet(ctx, Document{EntityType: entityType, EntityID: entityID, TypeCode: typeCode})
	if err != nil {
		return Document{}, false, err
	}
	if created {
		s.recordAudit(ctx, "DOC_CREATE", doc.ID, map[string]any{
			"entity_type": entityType, "entity_id": entityID, "type_code": typeCode,
		})
	}
	return doc, created, nil
}

// AddVersion registers an upload: the declared SHA-256 and size are stored,
// and the version stays pending until the bytes are verified.
func (s *Service) AddVersion(ctx context.Context, documentID uuid.UUID, fileName, declaredHash string, sizeBytes int64) (DocumentVersion, error) {
	declaredHash = strings.ToLower(strings.TrimSpace(declaredHash))
	if len(declaredHash) != sha256.Size*2 {
		return DocumentVersion{}, fmt.Errorf("%w: hash must be hex-encoded SHA-256", ErrValidation)
	}
	if _, err := hex.DecodeString(declaredHash); err != nil {
		return DocumentVersion{}, fmt.Errorf("%w: hash must be hex-encoded SHA-256", ErrValidation)
	}
	if fileName == "" {
		return DocumentVersion{}, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if _, err := s.repo.Get(ctx, documentID); err != nil {
		return DocumentVersion{}, err
	}

	version, err := s.repo.CreateVersion(ctx, DocumentVersion{
		DocumentID: documentID,
		FileName:   fileName,
		Hash:       declaredHash,
		SizeBytes:  sizeBytes,
		Status:     VersionPending,
	})
	if err != nil {
		return DocumentVersion{}, err
	}
	s.recordAudit(ctx, "DOC_VERSION", version.ID, map[string]any{
		"document_id": documentID.String(), "version": version.Version,
	})
	return version, nil
}

// FinalizeVersion hashes the uploaded content and, when it matches the
// declared hash, marks the version canonical. Only then does the document's
// main version move.
func (s *Service) FinalizeVersion(ctx context.Context, versionID uuid.UUID, content io.Reader) (DocumentVersion, error) {
	version, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return DocumentVersion{}, err
	}
	if version.Status != VersionPending {
		return DocumentVersion{}, ErrNotPending
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, content); err != nil {
		return DocumentVersion{}, err
	}
	actual := hex.EncodeToString(hasher.Sum(nil))
	if actual != version.Hash {
		return DocumentVersion{}, ErrHashMismatch
	}

	if err := s.repo.FinalizeVersion(ctx, version.DocumentID, version.ID); err != nil {
		return DocumentVersion{}, err
	}
	version.Status = VersionFinal
	s.recordAudit(ctx, "DOC_FINALIZE", version.ID, map[string]any{
		"document_id": version.DocumentID.String(), "version": version.Version,
	})
	return version, nil
}

// Get returns a document with its versions.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Document, []DocumentVersion, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	versions, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, versions, nil
}

// ListForEntity returns every attachment slot of one entity.
func (s *Service) ListForEntity(ctx context.Context, entityType string, entityID int64) ([]Document, error) {
	return s.repo.ListForEntity(ctx, entityType, entityID)
}

func (s *Service) recordAudit(ctx context.Context, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "document", EntityID: id.String(), Meta: meta})
}
