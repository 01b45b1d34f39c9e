package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vcrr512-lgtm/SpecScan/internal/logging"
)

// maxResponseBytes caps how much of a provider reply is buffered.
const maxResponseBytes = 4 << 20

// HTTPClient calls the remote classification endpoint over HTTP. One
// multipart upload per image; the credential and model identifier travel as
// call parameters, never inside the payload body.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	modelID    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient builds a provider client with a per-call timeout.
func NewHTTPClient(endpoint, apiKey, modelID string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		modelID:    modelID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("inference_client"),
	}
}

// CheckEndpoint implements Client.
func (c *HTTPClient) CheckEndpoint() error {
	_, err := c.requestURL()
	return err
}

// Detect implements Client. One attempt per call, no retries; a failed
// image is resubmitted by the caller if needed.
func (c *HTTPClient) Detect(ctx context.Context, filename, mediaType string, payload []byte) (*Result, error) {
	target, err := c.requestURL()
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", mediaType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, logging.NewOperationError("inference.build_payload", "", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, logging.NewOperationError("inference.build_payload", "", err)
	}
	if err := writer.Close(); err != nil {
		return nil, logging.NewOperationError("inference.build_payload", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, logging.NewOperationError("inference.build_request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, logging.NewOperationError("inference.detect", "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, logging.NewOperationError("inference.read_response", "", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := newAPIError(resp.StatusCode, raw)
		c.logger.Warn("inference call rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("filename", filename))
		return nil, apiErr
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, logging.NewOperationError("inference.decode_response", "", err)
	}
	if result.Predictions == nil {
		result.Predictions = []Detection{}
	}
	return &result, nil
}

func (c *HTTPClient) requestURL() (string, error) {
	base, err := url.Parse(c.endpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.endpoint)
	}
	base.Path = path.Join(base.Path, c.modelID)
	query := base.Query()
	query.Set("api_key", c.apiKey)
	base.RawQuery = query.Encode()
	return base.String(), nil
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}
