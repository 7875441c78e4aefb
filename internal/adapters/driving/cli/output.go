package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// documentRow is the structured form of a listed document.
type documentRow struct {
	ID         string  `json:"id" yaml:"id"`
	Title      string  `json:"title" yaml:"title"`
	Href       string  `json:"href" yaml:"href"`
	Domain     string  `json:"domain" yaml:"domain"`
	SizeMB     float64 `json:"contentSize" yaml:"contentSize"`
	CapturedAt string  `json:"capturedAt,omitempty" yaml:"capturedAt,omitempty"`
}

// groupRow is the structured form of a domain group.
type groupRow struct {
	Domain    string        `json:"domain" yaml:"domain"`
	StyleSize float64       `json:"styleSize" yaml:"styleSize"`
	Documents []documentRow `json:"children" yaml:"children"`
}

func toRow(doc *domain.Document) documentRow {
	row := documentRow{
		ID:     doc.ID,
		Title:  doc.Title,
		Href:   doc.Href,
		Domain: doc.Domain,
		SizeMB: doc.ContentSize,
	}
	if !doc.CapturedAt.IsZero() {
		row.CapturedAt = doc.CapturedAt.Format(time.RFC3339)
	}
	return row
}

func toGroupRows(groups []domain.DomainGroup) []groupRow {
	rows := make([]groupRow, len(groups))
	for i := range groups {
		rows[i] = groupRow{
			Domain:    groups[i].Domain,
			StyleSize: groups[i].StyleSize,
			Documents: make([]documentRow, len(groups[i].Children)),
		}
		for j := range groups[i].Children {
			rows[i].Documents[j] = toRow(&groups[i].Children[j])
		}
	}
	return rows
}

// writeStructured renders v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func validFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}
