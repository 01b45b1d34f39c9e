package analysis

import (
	"github.com/vcrr512-lgtm/SpecScan/internal/inference"
)

// Provenance keys stamped onto every detection so it stays traceable to its
// source image after flattening.
const (
	provenanceIndexKey = "imageIndex"
	provenanceNameKey  = "imageName"
)

// UploadItem is one submitted image file within a batch. Index is the
// 0-based submission position and fixes the item's slot in the output.
type UploadItem struct {
	Index     int
	Filename  string
	MediaType string
	Data      []byte
}

// ItemResult is the outcome of dispatching one UploadItem. Either the
// success fields or Error is populated, never both; the constructors below
// are the only way results are built, which keeps the two variants
// mutually exclusive.
type ItemResult struct {
	Index       int                   `json:"imageIndex"`
	Filename    string                `json:"imageName"`
	Predictions []inference.Detection `json:"predictions"`
	Image       *inference.Dimensions `json:"image"`
	Error       string                `json:"error,omitempty"`
}

// Failed reports whether this item's remote call was captured as a failure.
func (r ItemResult) Failed() bool {
	return r.Error != ""
}

func successResult(item UploadItem, res *inference.Result) ItemResult {
	predictions := make([]inference.Detection, 0, len(res.Predictions))
	for _, det := range res.Predictions {
		stamped := make(inference.Detection, len(det)+2)
		for k, v := range det {
			stamped[k] = v
		}
		stamped[provenanceIndexKey] = item.Index
		stamped[provenanceNameKey] = item.Filename
		predictions = append(predictions, stamped)
	}
	return ItemResult{
		Index:       item.Index,
		Filename:    item.Filename,
		Predictions: predictions,
		Image:       res.Image,
	}
}

func failureResult(item UploadItem, message string) ItemResult {
	return ItemResult{
		Index:       item.Index,
		Filename:    item.Filename,
		Predictions: []inference.Detection{},
		Error:       message,
	}
}

// Report is the aggregated reply for one analysis request. It is built
// once, after every dispatch resolves, and never mutated afterwards.
type Report struct {
	Success      bool                  `json:"success"`
	Area         string                `json:"area"`
	Results      []ItemResult          `json:"results"`
	Predictions  []inference.Detection `json:"predictions"`
	ImageCount   int                   `json:"image_count"`
	TotalDefects int                   `json:"total_defects"`

	// RequestID correlates logs and the X-Request-ID header; it is not part
	// of the response body.
	RequestID string `json:"-"`
}
