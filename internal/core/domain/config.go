package domain

import "fmt"

// ListDisplayType controls how the manager view lays out documents.
type ListDisplayType string

// Available list display types.
const (
	// ListDisplayDefault lists documents in capture order.
	ListDisplayDefault ListDisplayType = "default"

	// ListDisplayDomain groups documents by host.
	ListDisplayDomain ListDisplayType = "domain"
)

// IsValid returns true if the display type is recognised.
func (t ListDisplayType) IsValid() bool {
	return t == ListDisplayDefault || t == ListDisplayDomain
}

// ImageSaveType controls what is stored for images found on a page.
type ImageSaveType string

// Available image save types.
const (
	// ImageSaveDownload downloads and stores image bytes.
	ImageSaveDownload ImageSaveType = "download"

	// ImageSaveURL keeps only the original image URL.
	ImageSaveURL ImageSaveType = "url"
)

// IsValid returns true if the image save type is recognised.
func (t ImageSaveType) IsValid() bool {
	return t == ImageSaveDownload || t == ImageSaveURL
}

// Limits for ImageDownloadMaxSize, in MB.
const (
	MinImageDownloadSize = 0.5
	MaxImageDownloadSize = 10.0
)

// GlobalConfigKey is the key of the singleton configuration record.
const GlobalConfigKey = "global"

// GlobalConfig is the singleton user preference record.
type GlobalConfig struct {
	// ListDisplayType is default or domain.
	ListDisplayType ListDisplayType `json:"listDisplayType"`

	// ImageSaveType is download or url.
	ImageSaveType ImageSaveType `json:"imageSaveType"`

	// ImageDownloadMaxSize is the largest image kept, in MB.
	// Only meaningful when ImageSaveType is download.
	ImageDownloadMaxSize float64 `json:"imageDownloadMaxSize,omitempty"`
}

// DefaultGlobalConfig is returned for reads before the first write.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		ListDisplayType:      ListDisplayDefault,
		ImageSaveType:        ImageSaveDownload,
		ImageDownloadMaxSize: MinImageDownloadSize,
	}
}

// Validate checks enum values and the download size range.
func (c GlobalConfig) Validate() error {
	if !c.ListDisplayType.IsValid() {
		return fmt.Errorf("%w: list display type %q", ErrInvalidInput, c.ListDisplayType)
	}
	if !c.ImageSaveType.IsValid() {
		return fmt.Errorf("%w: image save type %q", ErrInvalidInput, c.ImageSaveType)
	}
	if c.ImageSaveType == ImageSaveDownload {
		if c.ImageDownloadMaxSize < MinImageDownloadSize || c.ImageDownloadMaxSize > MaxImageDownloadSize {
			return fmt.Errorf("%w: image download max size %.2f MB outside [%.1f, %.1f]",
				ErrInvalidInput, c.ImageDownloadMaxSize, MinImageDownloadSize, MaxImageDownloadSize)
		}
	}
	return nil
}

// MaxImageBytes returns the download limit in bytes.
func (c GlobalConfig) MaxImageBytes() int64 {
	return int64(c.ImageDownloadMaxSize * bytesPerMB)
}

// ConfigPatch is a partial update. Nil fields keep their stored value.
type ConfigPatch struct {
	ListDisplayType      *ListDisplayType `json:"listDisplayType,omitempty"`
	ImageSaveType        *ImageSaveType   `json:"imageSaveType,omitempty"`
	ImageDownloadMaxSize *float64         `json:"imageDownloadMaxSize,omitempty"`
}

// IsEmpty returns true if the patch changes nothing.
func (p ConfigPatch) IsEmpty() bool {
	return p.ListDisplayType == nil && p.ImageSaveType == nil && p.ImageDownloadMaxSize == nil
}

// Apply merges the patch into cfg and validates the result.
// cfg is left untouched when the merged record is invalid.
func (p ConfigPatch) Apply(cfg *GlobalConfig) error {
	merged := *cfg
	if p.ListDisplayType != nil {
		merged.ListDisplayType = *p.ListDisplayType
	}
	if p.ImageSaveType != nil {
		merged.ImageSaveType = *p.ImageSaveType
	}
	if p.ImageDownloadMaxSize != nil {
		merged.ImageDownloadMaxSize = *p.ImageDownloadMaxSize
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	*cfg = merged
	return nil
}
