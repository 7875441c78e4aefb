package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
)

// Ensure TransferService implements the interface.
var _ driving.TransferService = (*TransferService)(nil)

// Envelope section keys.
const (
	keyExportDocuments = "exportDocuments"
	keyExportResources = "exportResources"
)

// importAccept is the file filter offered when picking an import file.
const importAccept = ".json"

// TransferService exports documents to JSON envelopes and imports them back.
// Exports read the store directly; imports are applied by the background
// context through commands.
type TransferService struct {
	store    driven.ObjectStore
	commands driving.LibraryCommands
	picker   driven.FilePicker
}

// NewTransferService creates a transfer service. commands and picker are
// only needed by ImportFile.
func NewTransferService(
	store driven.ObjectStore,
	commands driving.LibraryCommands,
	picker driven.FilePicker,
) *TransferService {
	return &TransferService{
		store:    store,
		commands: commands,
		picker:   picker,
	}
}

// ExportSubset gathers the named documents, in the order given, and every
// resource that references them. Unknown ids are ignored.
func (s *TransferService) ExportSubset(ctx context.Context, ids []string) (*domain.Envelope, error) {
	env := &domain.Envelope{
		ExportDocuments: make([]domain.Document, 0, len(ids)),
		ExportResources: make([]domain.Resource, 0),
	}

	seen := make(map[string]bool, len(ids))
	found := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		doc, err := s.store.GetDocument(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("reading document %s: %w", id, err)
		}
		env.ExportDocuments = append(env.ExportDocuments, *doc)
		found = append(found, id)
	}

	if len(found) == 0 {
		return env, nil
	}

	resources, err := s.store.ListResources(ctx, found)
	if err != nil {
		return nil, fmt.Errorf("reading resources: %w", err)
	}
	env.ExportResources = append(env.ExportResources, resources...)

	return env, nil
}

// Serialize renders env as indented UTF-8 JSON. Resource payloads are
// base64 encoded.
func (s *TransferService) Serialize(env *domain.Envelope) ([]byte, error) {
	out := *env
	if out.ExportDocuments == nil {
		out.ExportDocuments = []domain.Document{}
	}
	if out.ExportResources == nil {
		out.ExportResources = []domain.Resource{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return data, nil
}

// ParseEnvelope validates untrusted import text. Syntax errors fail with
// domain.ErrMalformed and a wrong top-level shape with
// domain.ErrSchemaMismatch. Individual records that fail validation are
// reported in Rejected and left out of the envelope.
func (s *TransferService) ParseEnvelope(raw string) (*domain.ParsedEnvelope, error) {
	return ParseEnvelope([]byte(raw))
}

// ParseEnvelope is the store-independent form of TransferService.ParseEnvelope.
func ParseEnvelope(raw []byte) (*domain.ParsedEnvelope, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", domain.ErrMalformed)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return nil, fmt.Errorf("%w: top level must be an object", domain.ErrSchemaMismatch)
	}

	docRecords, err := section(top, keyExportDocuments)
	if err != nil {
		return nil, err
	}
	resRecords, err := section(top, keyExportResources)
	if err != nil {
		return nil, err
	}

	parsed := &domain.ParsedEnvelope{
		Envelope: domain.Envelope{
			ExportDocuments: make([]domain.Document, 0, len(docRecords)),
			ExportResources: make([]domain.Resource, 0, len(resRecords)),
		},
	}

	accepted := make(map[string]bool, len(docRecords))
	rejectedDocs := make(map[string]bool)
	for i, rec := range docRecords {
		doc, id, reason := parseDocument(rec)
		if reason == "" && accepted[id] {
			reason = "duplicate document id in batch"
		}
		if reason != "" {
			parsed.Rejected = append(parsed.Rejected, domain.RejectedRecord{
				Kind: domain.RecordDocument, Index: i, ID: id, Reason: reason,
			})
			if id != "" && !accepted[id] {
				rejectedDocs[id] = true
			}
			continue
		}
		accepted[id] = true
		parsed.Envelope.ExportDocuments = append(parsed.Envelope.ExportDocuments, *doc)
	}

	seenRes := make(map[string]bool, len(resRecords))
	for i, rec := range resRecords {
		res, reason := parseResource(rec)
		id := ""
		if res != nil {
			id = res.ID
		}
		switch {
		case reason != "":
		case seenRes[res.ID]:
			reason = "duplicate resource id in batch"
		case rejectedDocs[res.DocumentID]:
			reason = fmt.Sprintf("document %s was rejected", res.DocumentID)
		case !accepted[res.DocumentID]:
			reason = fmt.Sprintf("document %s is not in the batch", res.DocumentID)
		}
		if reason != "" {
			parsed.Rejected = append(parsed.Rejected, domain.RejectedRecord{
				Kind: domain.RecordResource, Index: i, ID: id, Reason: reason,
			})
			continue
		}
		seenRes[res.ID] = true
		parsed.Envelope.ExportResources = append(parsed.Envelope.ExportResources, *res)
	}

	return parsed, nil
}

// ImportFile picks a .json file, parses it and has the background context
// apply the valid records.
func (s *TransferService) ImportFile(ctx context.Context) (*driving.ImportReport, error) {
	if s.picker == nil || s.commands == nil {
		return nil, errors.New("import requires a file picker and a messenger")
	}

	handle, err := s.picker.Pick(ctx, importAccept)
	if err != nil {
		return nil, err
	}

	text, err := s.picker.ReadText(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", handle.Name, err)
	}

	parsed, err := s.ParseEnvelope(text)
	if err != nil {
		return nil, err
	}

	report := &driving.ImportReport{File: handle.Name, Rejected: parsed.Rejected}
	if len(parsed.Envelope.ExportDocuments) == 0 {
		return report, nil
	}

	result, err := s.commands.ApplyImport(ctx, parsed.Envelope)
	if err != nil {
		return nil, err
	}
	report.Result = result
	return report, nil
}

// section decodes a required top-level array.
func section(top map[string]json.RawMessage, key string) ([]json.RawMessage, error) {
	raw, ok := top[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrSchemaMismatch, key)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s must be an array", domain.ErrSchemaMismatch, key)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSchemaMismatch, key, err)
	}
	return records, nil
}

// parseDocument validates one document record. A non-empty reason means
// the record is rejected; id is returned whenever it could be read.
func parseDocument(rec json.RawMessage) (*domain.Document, string, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil || fields == nil {
		return nil, "", "record is not an object"
	}

	id, _ := stringField(fields, "id")
	for _, name := range []string{"id", "href", "domain"} {
		if isMissing(fields, name) {
			return nil, id, name + " is required"
		}
		v, ok := stringField(fields, name)
		if !ok {
			return nil, id, name + " must be a string"
		}
		if v == "" {
			return nil, id, name + " is required"
		}
	}

	if isMissing(fields, "contentSize") {
		return nil, id, "contentSize is required"
	}
	sizeRaw := fields["contentSize"]
	var size float64
	if err := json.Unmarshal(sizeRaw, &size); err != nil {
		return nil, id, "contentSize must be a number"
	}

	var doc domain.Document
	if err := json.Unmarshal(rec, &doc); err != nil {
		return nil, id, fmt.Sprintf("invalid field: %v", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, id, err.Error()
	}
	return &doc, id, ""
}

// parseResource validates one resource record.
func parseResource(rec json.RawMessage) (*domain.Resource, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil || fields == nil {
		return nil, "record is not an object"
	}

	var res domain.Resource
	if err := json.Unmarshal(rec, &res); err != nil {
		id, _ := stringField(fields, "id")
		return &domain.Resource{ID: id}, fmt.Sprintf("invalid field: %v", err)
	}
	if err := res.Validate(); err != nil {
		return &res, err.Error()
	}
	return &res, ""
}

// isMissing reports whether a field is absent or null.
func isMissing(fields map[string]json.RawMessage, name string) bool {
	raw, present := fields[name]
	return !present || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// stringField reads a string field. ok is false when the field is missing
// or not a string.
func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, present := fields[name]
	if !present {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}
