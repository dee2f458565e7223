package core

// Attachment represents a debug artifact captured during step execution
type Attachment struct {
	Name        string `json:"name"`           // Descriptive name: hierarchy
	ContentType string `json:"contentType"`    // MIME type
	Path        string `json:"path,omitempty"` // File path relative to output directory
	Body        []byte `json:"-"`              // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentHierarchy = "hierarchy"
)

// Common content types
const (
	ContentTypeXML  = "application/xml"
	ContentTypeJSON = "application/json"
)

// NewHierarchyAttachment creates a UI hierarchy attachment from page source XML
func NewHierarchyAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentHierarchy,
		ContentType: ContentTypeXML,
		Path:        path,
		Body:        data,
	}
}

// ArtifactConfig controls when artifacts are captured
type ArtifactConfig struct {
	CaptureOnFailure bool `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	CaptureOnSuccess bool `yaml:"captureOnSuccess" json:"captureOnSuccess"` // Default: false
	UIHierarchy      bool `yaml:"uiHierarchy" json:"uiHierarchy"`           // Default: true
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		CaptureOnSuccess: false,
		UIHierarchy:      true,
	}
}

// ShouldCapture returns true if artifacts should be captured for the given status
func (c ArtifactConfig) ShouldCapture(status StepStatus) bool {
	if !c.UIHierarchy {
		return false
	}
	switch status {
	case StatusFailed, StatusErrored:
		return c.CaptureOnFailure
	case StatusPassed:
		return c.CaptureOnSuccess
	default:
		return false
	}
}
