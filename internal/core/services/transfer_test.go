package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/webstash/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// stubPicker serves one in-memory file.
type stubPicker struct {
	name string
	text string
	err  error
}

func (p *stubPicker) Pick(_ context.Context, accept string) (*driven.FileHandle, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &driven.FileHandle{Name: p.name, Path: "/tmp/" + p.name, Size: int64(len(p.text))}, nil
}

func (p *stubPicker) ReadText(_ context.Context, _ *driven.FileHandle) (string, error) {
	return p.text, nil
}

func TestTransferService_ExportSubset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	f.seed(t, sampleDoc("1", "a.com", 1, now), sampleDoc("2", "b.com", 1, now))
	_, err := f.store.ImportDocuments(ctx, domain.Envelope{
		ExportDocuments: []domain.Document{sampleDoc("3", "c.com", 1, now)},
		ExportResources: []domain.Resource{{ID: "r3", DocumentID: "3", Kind: domain.ResourceKindDownload, BinaryData: []byte("png")}},
	})
	require.NoError(t, err)

	env, err := f.transfer.ExportSubset(ctx, []string{"3", "1", "3", "missing"})
	require.NoError(t, err)

	require.Len(t, env.ExportDocuments, 2)
	assert.Equal(t, "3", env.ExportDocuments[0].ID)
	assert.Equal(t, "1", env.ExportDocuments[1].ID)
	require.Len(t, env.ExportResources, 1)
	assert.Equal(t, []byte("png"), env.ExportResources[0].BinaryData)
}

func TestTransferService_EmptyExport(t *testing.T) {
	f := newFixture(t)

	env, err := f.transfer.ExportSubset(context.Background(), nil)
	require.NoError(t, err)

	data, err := f.transfer.Serialize(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"exportDocuments":[],"exportResources":[]}`, string(data))

	parsed, err := f.transfer.ParseEnvelope(string(data))
	require.NoError(t, err)
	assert.Empty(t, parsed.Envelope.ExportDocuments)
	assert.Empty(t, parsed.Rejected)
}

func TestTransferService_RoundTrip(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	_, err := src.store.ImportDocuments(ctx, domain.Envelope{
		ExportDocuments: []domain.Document{sampleDoc("1", "a.com", 0.5, now), sampleDoc("2", "b.com", 1.25, now)},
		ExportResources: []domain.Resource{
			{ID: "r1", DocumentID: "1", Kind: domain.ResourceKindDownload, BinaryData: []byte{0, 1, 2, 255}, ContentType: "image/png"},
			{ID: "r2", DocumentID: "2", Kind: domain.ResourceKindURL, OriginalURL: "https://b.com/i.jpg"},
		},
	})
	require.NoError(t, err)

	env, err := src.transfer.ExportSubset(ctx, []string{"1", "2"})
	require.NoError(t, err)
	data, err := src.transfer.Serialize(env)
	require.NoError(t, err)

	dst := newFixture(t)
	parsed, err := dst.transfer.ParseEnvelope(string(data))
	require.NoError(t, err)
	require.Empty(t, parsed.Rejected)

	result, err := dst.messenger.ApplyImport(ctx, parsed.Envelope)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportResult{Inserted: 2, ResourcesInserted: 2}, result)

	for _, id := range []string{"1", "2"} {
		want, _ := src.store.GetDocument(ctx, id)
		got, err := dst.store.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Href, got.Href)
		assert.Equal(t, want.ContentSize, got.ContentSize)
		assert.True(t, want.CapturedAt.Equal(got.CapturedAt))
	}
	res, err := dst.store.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 255}, res.BinaryData)
}

func TestParseEnvelope_Malformed(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"exportDocuments": [}`, `nope`} {
		_, err := ParseEnvelope([]byte(raw))
		assert.True(t, errors.Is(err, domain.ErrMalformed), "input %q", raw)
	}
}

func TestParseEnvelope_SchemaMismatch(t *testing.T) {
	inputs := []string{
		`[]`,
		`"text"`,
		`null`,
		`{}`,
		`{"exportDocuments": []}`,
		`{"exportResources": []}`,
		`{"exportDocuments": {}, "exportResources": []}`,
		`{"exportDocuments": [], "exportResources": null}`,
		`{"exportDocuments": "x", "exportResources": []}`,
	}
	for _, raw := range inputs {
		_, err := ParseEnvelope([]byte(raw))
		assert.True(t, errors.Is(err, domain.ErrSchemaMismatch), "input %q", raw)
	}
}

func TestParseEnvelope_PartialImport(t *testing.T) {
	raw := `{
		"exportDocuments": [
			{"id": "good", "title": "ok", "href": "https://a.com/x", "domain": "a.com", "contentSize": 0.1},
			{"id": "nosize", "title": "bad", "href": "https://a.com/y", "domain": "a.com"},
			{"id": "nullsize", "href": "https://a.com/z", "domain": "a.com", "contentSize": null},
			{"id": "strsize", "href": "https://a.com/w", "domain": "a.com", "contentSize": "1"},
			{"href": "https://a.com/v", "domain": "a.com", "contentSize": 1},
			{"id": 7, "href": "https://a.com/u", "domain": "a.com", "contentSize": 1},
			{"id": "mismatch", "href": "https://a.com/t", "domain": "b.com", "contentSize": 1},
			{"id": "good", "href": "https://a.com/x", "domain": "a.com", "contentSize": 0.1},
			42
		],
		"exportResources": [
			{"id": "r1", "documentId": "good", "kind": "url", "originalUrl": "https://a.com/i.png"},
			{"id": "r2", "documentId": "nosize", "kind": "url", "originalUrl": "https://a.com/j.png"},
			{"id": "r3", "documentId": "elsewhere", "kind": "url", "originalUrl": "https://a.com/k.png"},
			{"id": "r4", "documentId": "good", "kind": "download"},
			{"id": "r1", "documentId": "good", "kind": "url", "originalUrl": "https://a.com/i.png"}
		]
	}`

	parsed, err := ParseEnvelope([]byte(raw))
	require.NoError(t, err)

	require.Len(t, parsed.Envelope.ExportDocuments, 1)
	assert.Equal(t, "good", parsed.Envelope.ExportDocuments[0].ID)
	require.Len(t, parsed.Envelope.ExportResources, 1)
	assert.Equal(t, "r1", parsed.Envelope.ExportResources[0].ID)

	reasons := make(map[string]string)
	var docRejects, resRejects int
	for _, r := range parsed.Rejected {
		if r.Kind == domain.RecordDocument {
			docRejects++
			if r.ID != "" {
				reasons[r.ID] = r.Reason
			}
		} else {
			resRejects++
		}
	}
	assert.Equal(t, 8, docRejects)
	assert.Equal(t, 4, resRejects)
	assert.Equal(t, "contentSize is required", reasons["nosize"])
	assert.Equal(t, "contentSize is required", reasons["nullsize"])
	assert.Equal(t, "contentSize must be a number", reasons["strsize"])
	assert.Contains(t, reasons["mismatch"], "does not appear in href")
	assert.Equal(t, "duplicate document id in batch", reasons["good"])
}

func TestTransferService_ImportFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, sampleDoc("old", "a.com", 1, time.Now()))
	f.transfer = NewTransferService(f.store, f.messenger, &stubPicker{
		name: "backup.json",
		text: `{"exportDocuments":[
			{"id":"old","href":"https://a.com/old","domain":"a.com","contentSize":1},
			{"id":"new","href":"https://a.com/new","domain":"a.com","contentSize":2},
			{"id":"bad","href":"https://a.com/bad","domain":"a.com"}
		],"exportResources":[]}`,
	})

	report, err := f.transfer.ImportFile(ctx)
	require.NoError(t, err)

	assert.Equal(t, "backup.json", report.File)
	assert.Equal(t, 1, report.Result.Inserted)
	assert.Equal(t, 1, report.Result.Skipped)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "bad", report.Rejected[0].ID)

	docs, _ := f.store.ListDocuments(ctx)
	assert.Len(t, docs, 2)
}

func TestTransferService_ImportFile_Cancelled(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewTransferService(store, nil, &stubPicker{err: domain.ErrCancelled})

	_, err := svc.ImportFile(context.Background())
	assert.Error(t, err)

	f := newFixture(t)
	svc = NewTransferService(f.store, f.messenger, &stubPicker{err: domain.ErrCancelled})
	_, err = svc.ImportFile(context.Background())
	assert.True(t, errors.Is(err, domain.ErrCancelled))
}

func TestTransferService_ImportFile_Malformed(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.store, f.messenger, &stubPicker{name: "x.json", text: "{oops"})

	_, err := svc.ImportFile(context.Background())
	assert.True(t, errors.Is(err, domain.ErrMalformed))
}
