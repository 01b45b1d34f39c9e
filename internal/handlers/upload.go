package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vcrr512-lgtm/SpecScan/internal/analysis"
)

// MaxUploadSize is the per-file upload limit.
const MaxUploadSize = 10 << 20

// maxAreaBytes bounds the optional area text field.
const maxAreaBytes = 1 << 10

// Ingress rejection sentinels, mapped to distinct error codes by the
// analyze handler.
var (
	ErrUploadMalformed = errors.New("upload error")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// readUpload parses the multipart body into an ordered list of upload
// items plus the optional area label. File parts are accepted under any
// field name; the item index is the submission position. Everything is
// buffered in memory, nothing touches disk, and no remote call happens
// before validation passes.
func readUpload(r *http.Request, maxFileBytes int64) ([]analysis.UploadItem, string, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUploadMalformed, err)
	}

	var items []analysis.UploadItem
	area := ""
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUploadMalformed, err)
		}

		if part.FileName() == "" {
			if part.FormName() == "area" {
				value, err := io.ReadAll(io.LimitReader(part, maxAreaBytes))
				if err != nil {
					return nil, "", fmt.Errorf("%w: %v", ErrUploadMalformed, err)
				}
				area = strings.TrimSpace(string(value))
			}
			continue
		}

		mediaType := part.Header.Get("Content-Type")
		if !strings.HasPrefix(mediaType, "image/") {
			return nil, "", fmt.Errorf("%w: %q has type %q", ErrInvalidFileType, part.FileName(), mediaType)
		}

		data, err := io.ReadAll(io.LimitReader(part, maxFileBytes+1))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUploadMalformed, err)
		}
		if int64(len(data)) > maxFileBytes {
			return nil, "", fmt.Errorf("%w: %q exceeds %d bytes", ErrFileTooLarge, part.FileName(), maxFileBytes)
		}

		items = append(items, analysis.UploadItem{
			Index:     len(items),
			Filename:  part.FileName(),
			MediaType: mediaType,
			Data:      data,
		})
	}

	return items, area, nil
}
