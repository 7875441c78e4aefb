package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// HandleType selects how much of a page is captured.
type HandleType string

// Available handle types.
const (
	// HandleTypePage captures the whole page.
	HandleTypePage HandleType = "page"

	// HandleTypeArticle captures only the main article content.
	HandleTypeArticle HandleType = "article"
)

// IsValid returns true if the handle type is recognised.
func (h HandleType) IsValid() bool {
	return h == HandleTypePage || h == HandleTypeArticle
}

// String returns the string representation.
func (h HandleType) String() string {
	return string(h)
}

// Document is a captured web page or article.
type Document struct {
	// ID is assigned at capture time and never changes.
	ID string `json:"id"`

	// Title is the page title.
	Title string `json:"title"`

	// Href is the origin URL.
	Href string `json:"href"`

	// Domain is the host extracted from Href.
	Domain string `json:"domain"`

	// ContentSize is the stored size in MB, including downloaded resources.
	ContentSize float64 `json:"contentSize"`

	// CapturedAt is when the page was saved.
	CapturedAt time.Time `json:"capturedAt"`

	// HandleType records whether the whole page or only the article was kept.
	HandleType HandleType `json:"handleType,omitempty"`

	// Content is the captured HTML.
	Content string `json:"content,omitempty"`
}

// Validate checks the fields every stored Document must carry.
func (d *Document) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	case d.Href == "":
		return fmt.Errorf("%w: document href is required", ErrInvalidInput)
	case d.Domain == "":
		return fmt.Errorf("%w: document domain is required", ErrInvalidInput)
	case !strings.Contains(d.Href, d.Domain):
		return fmt.Errorf("%w: domain %q does not appear in href %q", ErrInvalidInput, d.Domain, d.Href)
	case d.ContentSize < 0:
		return fmt.Errorf("%w: negative content size", ErrInvalidInput)
	}
	return nil
}

// Path returns the part of Href after the domain, as shown in a
// domain-grouped listing.
func (d *Document) Path() string {
	_, after, found := strings.Cut(d.Href, d.Domain)
	if !found {
		return d.Href
	}
	return after
}

// DomainOf returns the host of rawURL.
func DomainOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: parsing url: %v", ErrInvalidInput, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidInput, rawURL)
	}
	return u.Host, nil
}

// ResourceKind records how a Resource stores its payload.
type ResourceKind string

// Available resource kinds.
const (
	// ResourceKindDownload holds the downloaded bytes.
	ResourceKindDownload ResourceKind = "download"

	// ResourceKindURL holds only the original URL.
	ResourceKindURL ResourceKind = "url"
)

// IsValid returns true if the resource kind is recognised.
func (k ResourceKind) IsValid() bool {
	return k == ResourceKindDownload || k == ResourceKindURL
}

// Resource is an auxiliary asset, usually an image, belonging to a Document.
// DocumentID is a lookup reference; the Document does not hold its resources.
type Resource struct {
	// ID is the unique identifier for the resource.
	ID string `json:"id"`

	// DocumentID links to the owning Document.
	DocumentID string `json:"documentId"`

	// Kind is download or url.
	Kind ResourceKind `json:"kind"`

	// OriginalURL is where the asset was found.
	OriginalURL string `json:"originalUrl,omitempty"`

	// BinaryData is the downloaded payload; base64 encoded in JSON.
	BinaryData []byte `json:"binaryData,omitempty"`

	// ContentType is the MIME type reported when the asset was fetched.
	ContentType string `json:"contentType,omitempty"`
}

// Validate checks the fields every stored Resource must carry.
func (r *Resource) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: resource id is required", ErrInvalidInput)
	case r.DocumentID == "":
		return fmt.Errorf("%w: resource documentId is required", ErrInvalidInput)
	case !r.Kind.IsValid():
		return fmt.Errorf("%w: unknown resource kind %q", ErrInvalidInput, r.Kind)
	case r.Kind == ResourceKindDownload && len(r.BinaryData) == 0:
		return fmt.Errorf("%w: download resource has no data", ErrInvalidInput)
	case r.Kind == ResourceKindURL && r.OriginalURL == "":
		return fmt.Errorf("%w: url resource has no originalUrl", ErrInvalidInput)
	}
	return nil
}

// CapturedPage is the opaque payload returned by a page capturer.
type CapturedPage struct {
	// URL is the final URL of the page.
	URL string

	// Title is the page title.
	Title string

	// HTML is the captured markup.
	HTML string

	// Images are the assets referenced by the captured markup.
	Images []CapturedImage
}

// CapturedImage is one asset found while capturing a page.
// Data is nil when the asset was not downloaded.
type CapturedImage struct {
	URL         string
	ContentType string
	Data        []byte
}

// bytesPerMB is the divisor used for ContentSize.
const bytesPerMB = 1024 * 1024

// SizeInMB converts a byte count to MB rounded to two decimals.
func SizeInMB(n int) float64 {
	mb := float64(n) / bytesPerMB
	return float64(int64(mb*100+0.5)) / 100
}
