package sqlite

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testDocument(id, host string, at time.Time) domain.Document {
	return domain.Document{
		ID:          id,
		Title:       "Title " + id,
		Href:        "https://" + host + "/" + id,
		Domain:      host,
		ContentSize: 0.12,
		CapturedAt:  at.UTC().Truncate(time.Microsecond),
		HandleType:  domain.HandleTypeArticle,
		Content:     "<article>" + id + "</article>",
	}
}

func testResource(id, docID string) domain.Resource {
	return domain.Resource{
		ID:          id,
		DocumentID:  docID,
		Kind:        domain.ResourceKindDownload,
		OriginalURL: "https://example.com/" + id + ".png",
		BinaryData:  []byte{0x89, 'P', 'N', 'G'},
		ContentType: "image/png",
	}
}

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "webstash.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "nested", "path", "to", "db")

	store, err := NewStore(nestedDir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, nestedDir)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, table := range []string{"documents", "resources", "config"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewStore(dir)
	require.NoError(t, err)
	doc := testDocument("a", "example.com", time.Now())
	_, err = first.ObjectStore().InsertDocument(ctx, &doc, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.ObjectStore().GetDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, doc, *got)
}

func TestNewStore_Pragmas(t *testing.T) {
	store := setupTestStore(t)

	var fkEnabled, synchronous int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled))
	require.NoError(t, store.db.QueryRow("PRAGMA synchronous").Scan(&synchronous))
	assert.Equal(t, 1, fkEnabled, "foreign keys should be enabled")
	assert.Equal(t, 2, synchronous, "synchronous should be FULL")
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== ObjectStore Tests ====================

func TestObjectStore_InsertAndGetDocument(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()
	doc := testDocument("a", "example.com", time.Now())

	n, err := objects.InsertDocument(ctx, &doc, []domain.Resource{testResource("r1", "a"), testResource("r2", "a")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := objects.GetDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, doc, *got)

	res, err := objects.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, testResource("r1", "a"), *res)
}

func TestObjectStore_GetDocument_NotFound(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()

	_, err := objects.GetDocument(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = objects.GetResource(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestObjectStore_InsertDocument_AlreadyExistsWritesNothing(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()
	doc := testDocument("a", "example.com", time.Now())

	_, err := objects.InsertDocument(ctx, &doc, nil)
	require.NoError(t, err)

	dup := doc
	dup.Title = "replacement"
	_, err = objects.InsertDocument(ctx, &dup, []domain.Resource{testResource("r1", "a")})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	got, _ := objects.GetDocument(ctx, "a")
	assert.Equal(t, doc.Title, got.Title)
	_, err = objects.GetResource(ctx, "r1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestObjectStore_InsertDocument_ResourceForMissingDocumentRollsBack(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()
	doc := testDocument("a", "example.com", time.Now())

	_, err := objects.InsertDocument(ctx, &doc, []domain.Resource{testResource("r1", "ghost")})
	require.Error(t, err)

	_, err = objects.GetDocument(ctx, "a")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestObjectStore_ListDocuments_OldestFirst(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()
	now := time.Now()

	docs, err := objects.ListDocuments(ctx)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	for _, d := range []domain.Document{
		testDocument("c", "c.com", now),
		testDocument("a", "a.com", now.Add(-2*time.Hour)),
		testDocument("b", "b.com", now.Add(-time.Hour)),
	} {
		_, err := objects.InsertDocument(ctx, &d, nil)
		require.NoError(t, err)
	}

	docs, err = objects.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestObjectStore_DeleteDocuments_Cascades(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()
	a := testDocument("a", "a.com", time.Now())
	b := testDocument("b", "b.com", time.Now())
	_, err := objects.InsertDocument(ctx, &a, []domain.Resource{testResource("ra", "a")})
	require.NoError(t, err)
	_, err = objects.InsertDocument(ctx, &b, []domain.Resource{testResource("rb", "b")})
	require.NoError(t, err)

	n, err := objects.DeleteDocuments(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = objects.GetResource(ctx, "ra")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	res, err := objects.ListResources(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "rb", res[0].ID)
}

func TestObjectStore_ListResources_Empty(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()

	res, err := objects.ListResources(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestObjectStore_ListResources_ByDocument(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()

	a := testDocument("a", "a.com", time.Now())
	b := testDocument("b", "b.com", time.Now())
	c := testDocument("c", "c.com", time.Now())
	urlOnly := testResource("ra2", "a")
	urlOnly.Kind = domain.ResourceKindURL
	urlOnly.BinaryData = nil

	_, err := objects.InsertDocument(ctx, &a, []domain.Resource{testResource("ra1", "a"), urlOnly})
	require.NoError(t, err)
	_, err = objects.InsertDocument(ctx, &b, []domain.Resource{testResource("rb1", "b")})
	require.NoError(t, err)
	_, err = objects.InsertDocument(ctx, &c, []domain.Resource{testResource("rc1", "c")})
	require.NoError(t, err)

	got, err := objects.ListResources(ctx, []string{"b", "a", "missing"})
	require.NoError(t, err)

	want := []domain.Resource{testResource("ra1", "a"), urlOnly, testResource("rb1", "b")}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ListResources mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectStore_ImportDocuments(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()
	existing := testDocument("a", "a.com", time.Now())
	_, err := objects.InsertDocument(ctx, &existing, nil)
	require.NoError(t, err)

	incoming := testDocument("a", "a.com", time.Now())
	incoming.Title = "should not overwrite"
	env := domain.Envelope{
		ExportDocuments: []domain.Document{incoming, testDocument("b", "b.com", time.Now())},
		ExportResources: []domain.Resource{testResource("ra", "a"), testResource("rb", "b")},
	}

	result, err := objects.ImportDocuments(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportResult{Inserted: 1, Skipped: 1, ResourcesInserted: 1, ResourcesSkipped: 1}, result)

	got, _ := objects.GetDocument(ctx, "a")
	assert.Equal(t, existing.Title, got.Title)

	again, err := objects.ImportDocuments(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportResult{Skipped: 2, ResourcesSkipped: 2}, again)

	_, err = objects.GetResource(ctx, "ra")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, _ := objects.ListDocuments(ctx)
	assert.Len(t, docs, 2)
}

func TestObjectStore_ImportDocuments_AllOrNothing(t *testing.T) {
	store := setupTestStore(t)
	objects := store.ObjectStore()
	ctx := context.Background()

	// Without the resources table the resource insert fails after the
	// document insert has already run inside the transaction.
	_, err := store.db.Exec("DROP TABLE resources")
	require.NoError(t, err)

	env := domain.Envelope{
		ExportDocuments: []domain.Document{testDocument("a", "a.com", time.Now())},
		ExportResources: []domain.Resource{testResource("ra", "a")},
	}
	_, err = objects.ImportDocuments(ctx, env)
	require.Error(t, err)

	_, err = objects.GetDocument(ctx, "a")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestObjectStore_Config(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()

	cfg, err := objects.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGlobalConfig(), cfg)

	want := domain.GlobalConfig{
		ListDisplayType:      domain.ListDisplayDomain,
		ImageSaveType:        domain.ImageSaveDownload,
		ImageDownloadMaxSize: 4,
	}
	require.NoError(t, objects.PutConfig(ctx, want))

	cfg, err = objects.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, cfg)

	err = objects.PutConfig(ctx, domain.GlobalConfig{ListDisplayType: "grid"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestObjectStore_UpdateConfig(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()

	save := domain.ImageSaveURL
	cfg, err := objects.UpdateConfig(ctx, domain.ConfigPatch{ImageSaveType: &save}.Apply)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSaveURL, cfg.ImageSaveType)
	assert.Equal(t, domain.ListDisplayDefault, cfg.ListDisplayType)

	boom := errors.New("boom")
	_, err = objects.UpdateConfig(ctx, func(c *domain.GlobalConfig) error {
		c.ListDisplayType = domain.ListDisplayDomain
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := objects.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, stored)
}

func TestObjectStore_UpdateConfig_Concurrent(t *testing.T) {
	objects := setupTestStore(t).ObjectStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := objects.UpdateConfig(ctx, func(c *domain.GlobalConfig) error {
				if c.ImageDownloadMaxSize+0.5 <= domain.MaxImageDownloadSize {
					c.ImageDownloadMaxSize += 0.5
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cfg, err := objects.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.MinImageDownloadSize+8*0.5, cfg.ImageDownloadMaxSize)
}

func TestClassify(t *testing.T) {
	plain := errors.New("plain")
	assert.Same(t, plain, classify(plain))
	assert.Nil(t, classify(nil))
}

func TestNewStore_NotADatabase(t *testing.T) {
	dir := t.TempDir()
	junk := bytes.Repeat([]byte("not a database "), 512)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "webstash.db"), junk, 0600))

	_, err := NewStore(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
}
