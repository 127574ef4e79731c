package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/artha-erp/artha-erp/internal/platform/db"
)

// Repository persists documents and their versions.
type Repository interface {
	// CreateOrGet inserts the document slot. When a concurrent insert wins
	// the unique race on (entity_type, entity_id, type_code), the existing
	// row is re-selected and returned instead.
	CreateOrGet(ctx context.Context, d Document) (Document, bool, error)
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	Find(ctx context.Context, entityType string, entityID int64, typeCode string) (Document, error)
	ListForEntity(ctx context.Context, entityType string, entityID int64) ([]Document, error)

	CreateVersion(ctx context.Context, v DocumentVersion) (DocumentVersion, error)
	GetVersion(ctx context.Context, id uuid.UUID) (DocumentVersion, error)
	ListVersions(ctx context.Context, documentID uuid.UUID) ([]DocumentVersion, error)
	// FinalizeVersion marks the version final and repoints the document's
	// main version in one transaction.
	FinalizeVersion(ctx context.Context, documentID, versionID uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const documentColumns = `id, entity_type, entity_id, type_code, main_version_id, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.EntityType, &d.EntityID, &d.TypeCode, &d.MainVersionID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

func (r *repository) CreateOrGet(ctx context.Context, d Document) (Document, bool, error) {
	now := time.Now()
	d.ID = uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, entity_type, entity_id, type_code, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		d.ID, d.EntityType, d.EntityID, d.TypeCode, now)
	if err == nil {
		d.CreatedAt = now
		d.UpdatedAt = now
		return d, true, nil
	}
	if !platformdb.IsUniqueViolation(err) {
		return Document{}, false, err
	}
	existing, err := r.Find(ctx, d.EntityType, d.EntityID, d.TypeCode)
	if err != nil {
		return Document{}, false, err
	}
	return existing, false, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	return scanDocument(r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

func (r *repository) Find(ctx context.Context, entityType string, entityID int64, typeCode string) (Document, error) {
	return scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE entity_type = $1 AND entity_id = $2 AND type_code = $3`,
		entityType, entityID, typeCode))
}

func (r *repository) ListForEntity(ctx context.Context, entityType string, entityID int64) ([]Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE entity_type = $1 AND entity_id = $2 ORDER BY type_code ASC`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const versionColumns = `id, document_id, version, file_name, hash, size_bytes, status, created_at`

func scanVersion(row pgx.Row) (DocumentVersion, error) {
	var v DocumentVersion
	err := row.Scan(&v.ID, &v.DocumentID, &v.Version, &v.FileName, &v.Hash, &v.SizeBytes, &v.Status, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentVersion{}, ErrNotFound
	}
	return v, err
}

func (r *repository) CreateVersion(ctx context.Context, v DocumentVersion) (DocumentVersion, error) {
	now := time.Now()
	v.ID = uuid.New()
	err := r.db.QueryRow(ctx,
		`INSERT INTO document_versions (id, document_id, version, file_name, hash, size_bytes, status, created_at)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(version), 0) + 1 FROM document_versions WHERE document_id = $2), $3, $4, $5, $6, $7)
		 RETURNING version`,
		v.ID, v.DocumentID, v.FileName, v.Hash, v.SizeBytes, v.Status, now).Scan(&v.Version)
	if err != nil {
		return DocumentVersion{}, err
	}
	v.CreatedAt = now
	return v, nil
}

func (r *repository) GetVersion(ctx context.Context, id uuid.UUID) (DocumentVersion, error) {
	return scanVersion(r.db.QueryRow(ctx, `SELECT `+versionColumns+` FROM document_versions WHERE id = $1`, id))
}

func (r *repository) ListVersions(ctx context.Context, documentID uuid.UUID) ([]DocumentVersion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE document_id = $1 ORDER BY version ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repository) FinalizeVersion(ctx context.Context, documentID, versionID uuid.UUID) error {
	return platformdb.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE document_versions SET status = $1 WHERE id = $2 AND document_id = $3`,
			VersionFinal, versionID, documentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		tag, err = tx.Exec(ctx,
			`UPDATE documents SET main_version_id = $1, updated_at = $2 WHERE id = $3`,
			versionID, time.Now(), documentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
