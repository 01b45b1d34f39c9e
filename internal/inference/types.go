package inference

import "context"

// Detection is one predicted defect as returned by the provider. The
// classification fields (class, confidence, bounding geometry) are
// provider-owned and passed through untouched.
type Detection map[string]any

// Dimensions holds the source image size when the provider reports it.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is a decoded provider success response. Both fields are optional
// on the wire; Predictions is normalized to an empty slice when absent.
type Result struct {
	Predictions []Detection `json:"predictions"`
	Image       *Dimensions `json:"image,omitempty"`
}

// Client exposes the subset of provider functionality used by the analysis
// pipeline.
type Client interface {
	// CheckEndpoint verifies the configured endpoint and model identifier
	// can form a valid request. Called once per batch, before any per-item
	// dispatch starts.
	CheckEndpoint() error
	// Detect runs one classification call for a single image.
	Detect(ctx context.Context, filename, mediaType string, payload []byte) (*Result, error)
}
