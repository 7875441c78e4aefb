package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// objectStore implements driven.ObjectStore.
type objectStore struct {
	store *Store
}

var _ driven.ObjectStore = (*objectStore)(nil)

const documentColumns = `id, title, href, domain, content_size, captured_at, handle_type, content`

const resourceColumns = `id, document_id, kind, original_url, binary_data, content_type`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetDocument retrieves a document by ID.
func (s *objectStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}
	return doc, nil
}

// ListDocuments returns all documents, oldest capture first.
func (s *objectStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		ORDER BY captured_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", classify(err))
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", classify(err))
	}

	return docs, nil
}

// InsertDocument stores a new document together with its resources.
func (s *objectStore) InsertDocument(
	ctx context.Context,
	doc *domain.Document,
	resources []domain.Resource,
) (int, error) {
	var inserted int
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := insertDocument(ctx, tx, doc)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("document %s: %w", doc.ID, domain.ErrAlreadyExists)
		}

		for i := range resources {
			ok, err := insertResource(ctx, tx, &resources[i])
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ImportDocuments inserts the envelope's new documents and their resources
// in one transaction. Resources of skipped documents are counted as skipped.
func (s *objectStore) ImportDocuments(ctx context.Context, env domain.Envelope) (domain.ImportResult, error) {
	var result domain.ImportResult
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		inserted := make(map[string]bool, len(env.ExportDocuments))

		for i := range env.ExportDocuments {
			ok, err := insertDocument(ctx, tx, &env.ExportDocuments[i])
			if err != nil {
				return err
			}
			if !ok {
				result.Skipped++
				continue
			}
			inserted[env.ExportDocuments[i].ID] = true
			result.Inserted++
		}

		for i := range env.ExportResources {
			// Resources of a document that was already present count as
			// found, not inserted.
			if !inserted[env.ExportResources[i].DocumentID] {
				result.ResourcesSkipped++
				continue
			}
			ok, err := insertResource(ctx, tx, &env.ExportResources[i])
			if err != nil {
				return err
			}
			if ok {
				result.ResourcesInserted++
			} else {
				result.ResourcesSkipped++
			}
		}
		return nil
	})
	if err != nil {
		return domain.ImportResult{}, err
	}
	return result, nil
}

// DeleteDocuments removes documents; resources go with them via the
// foreign key cascade.
func (s *objectStore) DeleteDocuments(ctx context.Context, ids []string) (int, error) {
	var deleted int
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
			if err != nil {
				return fmt.Errorf("deleting document %s: %w", id, classify(err))
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("checking rows affected: %w", err)
			}
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// GetResource retrieves a resource by ID.
func (s *objectStore) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources WHERE id = ?
	`, id)

	res, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}
	return res, nil
}

// ListResources returns the resources that reference any of documentIDs.
func (s *objectStore) ListResources(ctx context.Context, documentIDs []string) ([]domain.Resource, error) {
	out := make([]domain.Resource, 0)
	if len(documentIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(documentIDs)), ",")
	args := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		args[i] = id
	}

	//nolint:gosec // placeholders only, values are bound
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE document_id IN (`+placeholders+`)
		ORDER BY document_id, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resources: %w", classify(err))
	}

	return out, nil
}

// GetConfig returns the global config, or the default before the first write.
func (s *objectStore) GetConfig(ctx context.Context) (domain.GlobalConfig, error) {
	return getConfig(ctx, s.store.db)
}

// PutConfig replaces the global config.
func (s *objectStore) PutConfig(ctx context.Context, cfg domain.GlobalConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		return putConfig(ctx, tx, cfg)
	})
}

// UpdateConfig reads, modifies and writes the config in one transaction.
func (s *objectStore) UpdateConfig(
	ctx context.Context,
	fn func(*domain.GlobalConfig) error,
) (domain.GlobalConfig, error) {
	var cfg domain.GlobalConfig
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		// Take the write lock before reading so concurrent writers serialise.
		if _, err := tx.ExecContext(ctx,
			"UPDATE config SET value = value WHERE key = ?", domain.GlobalConfigKey); err != nil {
			return fmt.Errorf("locking config: %w", classify(err))
		}

		current, err := getConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(&current); err != nil {
			return err
		}
		if err := current.Validate(); err != nil {
			return err
		}
		if err := putConfig(ctx, tx, current); err != nil {
			return err
		}
		cfg = current
		return nil
	})
	if err != nil {
		return domain.GlobalConfig{}, err
	}
	return cfg, nil
}

// insertDocument inserts doc unless its id is taken. ok is false if the
// document already existed.
func insertDocument(ctx context.Context, q querier, doc *domain.Document) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, doc.ID, doc.Title, doc.Href, doc.Domain, doc.ContentSize,
		doc.CapturedAt.UnixMicro(), string(doc.HandleType), doc.Content)
	if err != nil {
		return false, fmt.Errorf("inserting document %s: %w", doc.ID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

// insertResource inserts res unless its id is taken.
func insertResource(ctx context.Context, q querier, res *domain.Resource) (bool, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, res.ID, res.DocumentID, string(res.Kind), res.OriginalURL, res.BinaryData, res.ContentType)
	if err != nil {
		return false, fmt.Errorf("inserting resource %s: %w", res.ID, classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

func getConfig(ctx context.Context, q querier) (domain.GlobalConfig, error) {
	var value string
	err := q.QueryRowContext(ctx,
		"SELECT value FROM config WHERE key = ?", domain.GlobalConfigKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultGlobalConfig(), nil
	}
	if err != nil {
		return domain.GlobalConfig{}, fmt.Errorf("reading config: %w", classify(err))
	}

	cfg := domain.DefaultGlobalConfig()
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return domain.GlobalConfig{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func putConfig(ctx context.Context, q querier, cfg domain.GlobalConfig) error {
	value, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, domain.GlobalConfigKey, string(value))
	if err != nil {
		return fmt.Errorf("writing config: %w", classify(err))
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var capturedAt int64
	var handleType string

	if err := row.Scan(&doc.ID, &doc.Title, &doc.Href, &doc.Domain, &doc.ContentSize,
		&capturedAt, &handleType, &doc.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.CapturedAt = time.UnixMicro(capturedAt).UTC()
	doc.HandleType = domain.HandleType(handleType)
	return &doc, nil
}

func scanResource(row scanner) (*domain.Resource, error) {
	var res domain.Resource
	var kind string

	if err := row.Scan(&res.ID, &res.DocumentID, &kind, &res.OriginalURL,
		&res.BinaryData, &res.ContentType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning resource: %w", err)
	}

	res.Kind = domain.ResourceKind(kind)
	if len(res.BinaryData) == 0 {
		res.BinaryData = nil
	}
	return &res, nil
}
