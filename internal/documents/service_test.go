package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type slotKey struct {
	entityType string
	entityID   int64
	typeCode   string
}

type fakeRepo struct {
	docs     map[uuid.UUID]Document
	slots    map[slotKey]uuid.UUID
	versions map[uuid.UUID]DocumentVersion
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:     map[uuid.UUID]Document{},
		slots:    map[slotKey]uuid.UUID{},
		versions: map[uuid.UUID]DocumentVersion{},
	}
}

func (f *fakeRepo) CreateOrGet(_ context.Context, d Document) (Document, bool, error) {
	key := slotKey{d.EntityType, d.EntityID, d.TypeCode}
	if id, ok := f.slots[key]; ok {
		return f.docs[id], false, nil
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	f.docs[d.ID] = d
	f.slots[key] = d.ID
	return d, true, nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (f *fakeRepo) Find(_ context.Context, entityType string, entityID int64, typeCode string) (Document, error) {
	id, ok := f.slots[slotKey{entityType, entityID, typeCode}]
	if !ok {
		return Document{}, ErrNotFound
	}
	return f.docs[id], nil
}

func (f *fakeRepo) ListForEntity(_ context.Context, entityType string, entityID int64) ([]Document, error) {
	var out []Document
	for _, d := range f.docs {
		if d.EntityType == entityType && d.EntityID == entityID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateVersion(_ context.Context, v DocumentVersion) (DocumentVersion, error) {
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	max := 0
	for _, existing := range f.versions {
		if existing.DocumentID == v.DocumentID && existing.Version > max {
			max = existing.Version
		}
	}
	v.Version = max + 1
	f.versions[v.ID] = v
	return v, nil
}

func (f *fakeRepo) GetVersion(_ context.Context, id uuid.UUID) (DocumentVersion, error) {
	v, ok := f.versions[id]
	if !ok {
		return DocumentVersion{}, ErrNotFound
	}
	return v, nil
}

func (f *fakeRepo) ListVersions(_ context.Context, documentID uuid.UUID) ([]DocumentVersion, error) {
	var out []DocumentVersion
	for _, v := range f.versions {
		if v.DocumentID == documentID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRepo) FinalizeVersion(_ context.Context, documentID, versionID uuid.UUID) error {
	v, ok := f.versions[versionID]
	if !ok || v.DocumentID != documentID {
		return ErrNotFound
	}
	v.Status = VersionFinal
	f.versions[versionID] = v

	d, ok := f.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	id := versionID
	d.MainVersionID = &id
	d.UpdatedAt = time.Now()
	f.docs[documentID] = d
	return nil
}

func hashOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func TestEnsureDocumentReturnsExistingSlot(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	first, created, err := svc.EnsureDocument(ctx, "purchase_order", 7, "INVOICE")
	require.NoError(t, err)
	require.True(t, created)

	// Same slot again: same row, no duplicate.
	second, created, err := svc.EnsureDocument(ctx, "purchase_order", 7, "INVOICE")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	_, _, err = svc.EnsureDocument(ctx, "", 7, "INVOICE")
	require.ErrorIs(t, err, ErrValidation)
}

func TestAddVersionValidatesHash(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	doc, _, err := svc.EnsureDocument(ctx, "expense", 1, "RECEIPT")
	require.NoError(t, err)

	_, err = svc.AddVersion(ctx, doc.ID, "receipt.pdf", "deadbeef", 10)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddVersion(ctx, doc.ID, "receipt.pdf", hashOf([]byte("x"))[:63]+"z", 10)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddVersion(ctx, uuid.New(), "receipt.pdf", hashOf([]byte("x")), 10)
	require.ErrorIs(t, err, ErrNotFound)

	v, err := svc.AddVersion(ctx, doc.ID, "receipt.pdf", hashOf([]byte("x")), 10)
	require.NoError(t, err)
	require.Equal(t, 1, v.Version)
	require.Equal(t, VersionPending, v.Status)
}

func TestFinalizeVerifiesContent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	content := []byte("invoice pdf bytes")
	doc, _, err := svc.EnsureDocument(ctx, "purchase_order", 3, "INVOICE")
	require.NoError(t, err)
	v, err := svc.AddVersion(ctx, doc.ID, "invoice.pdf", hashOf(content), int64(len(content)))
	require.NoError(t, err)

	// Wrong bytes never become canonical.
	_, err = svc.FinalizeVersion(ctx, v.ID, bytes.NewReader([]byte("tampered")))
	require.ErrorIs(t, err, ErrHashMismatch)

	got, err := svc.FinalizeVersion(ctx, v.ID, bytes.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, VersionFinal, got.Status)

	updated, _, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.MainVersionID)
	require.Equal(t, v.ID, *updated.MainVersionID)

	// Finalizing a version that is already final is rejected.
	_, err = svc.FinalizeVersion(ctx, v.ID, bytes.NewReader(content))
	require.ErrorIs(t, err, ErrNotPending)
}

func TestVersionsIncrementPerDocument(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	doc, _, err := svc.EnsureDocument(ctx, "expense", 2, "RECEIPT")
	require.NoError(t, err)
	other, _, err := svc.EnsureDocument(ctx, "expense", 2, "APPROVAL")
	require.NoError(t, err)

	content := []byte("first")
	v1, err := svc.AddVersion(ctx, doc.ID, "a.pdf", hashOf(content), 5)
	require.NoError(t, err)
	v2, err := svc.AddVersion(ctx, doc.ID, "b.pdf", hashOf([]byte("second")), 6)
	require.NoError(t, err)
	w1, err := svc.AddVersion(ctx, other.ID, "c.pdf", hashOf([]byte("third")), 5)
	require.NoError(t, err)

	require.Equal(t, 1, v1.Version)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, 1, w1.Version, "version counters are per document")

	// Finalizing v1 and then v2 moves the main pointer to the newest
	// accepted version.
	_, err = svc.FinalizeVersion(ctx, v1.ID, bytes.NewReader(content))
	require.NoError(t, err)
	_, err = svc.FinalizeVersion(ctx, v2.ID, bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	updated, _, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, v2.ID, *updated.MainVersionID)
}
