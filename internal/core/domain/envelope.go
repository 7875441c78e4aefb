package domain

// Envelope is the portable import/export unit.
type Envelope struct {
	ExportDocuments []Document `json:"exportDocuments"`
	ExportResources []Resource `json:"exportResources"`
}

// RecordKind names the envelope section a rejected record came from.
type RecordKind string

// Record kinds reported by the import parser.
const (
	RecordDocument RecordKind = "document"
	RecordResource RecordKind = "resource"
)

// RejectedRecord reports one import record that failed validation.
type RejectedRecord struct {
	// Kind is document or resource.
	Kind RecordKind `json:"kind"`

	// Index is the position in its envelope section.
	Index int `json:"index"`

	// ID is the record id, when one could be read.
	ID string `json:"id,omitempty"`

	// Reason explains the failure.
	Reason string `json:"reason"`
}

// ParsedEnvelope is a validated envelope plus the records that were dropped.
type ParsedEnvelope struct {
	Envelope Envelope
	Rejected []RejectedRecord
}

// ImportResult summarises an applied import.
type ImportResult struct {
	// Inserted is the number of new documents.
	Inserted int `json:"insertedCount"`

	// Skipped is the number of documents whose id was already stored.
	Skipped int `json:"skippedCount"`

	// ResourcesInserted is the number of new resources.
	ResourcesInserted int `json:"resourcesInserted"`

	// ResourcesSkipped is the number of resources whose id was already stored
	// or whose document was skipped.
	ResourcesSkipped int `json:"resourcesSkipped"`
}

// ResourcesFor returns the resources in env that belong to documentID.
func (e *Envelope) ResourcesFor(documentID string) []Resource {
	var out []Resource
	for i := range e.ExportResources {
		if e.ExportResources[i].DocumentID == documentID {
			out = append(out, e.ExportResources[i])
		}
	}
	return out
}
