package comparator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/document"
)

const (
	DefaultBaseURL = "/api"
	// DefaultOrigin resolves a relative base URL such as DefaultBaseURL.
	DefaultOrigin = "http://localhost:8000"

	comparePath    = "/compare"
	userAgent      = "spigell/jd-comparator"
	defaultTimeout = 60 * time.Second
)

// Multipart field names expected by the comparison API.
const (
	FieldJDFile     = "jd_file"
	FieldJDText     = "jd_text"
	FieldResumeFile = "resume_file"
)

// Payload is one submission. JDFile takes precedence over JDText.
type Payload struct {
	JDFile     *document.File
	JDText     string
	ResumeFile *document.File
}

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New returns a client for the API at baseURL. No request is made.
func New(logger *zap.Logger, baseURL string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		APIURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent: userAgent,
	}
}

// ResolveBaseURL joins a relative base URL such as "/api" onto origin.
// Absolute base URLs are returned unchanged.
func ResolveBaseURL(baseURL, origin string) (string, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing api base url %q: %w", baseURL, err)
	}

	if base.IsAbs() {
		return strings.TrimRight(base.String(), "/"), nil
	}

	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = DefaultOrigin
	}

	root, err := url.Parse(origin)
	if err != nil || !root.IsAbs() {
		return "", fmt.Errorf("api origin %q must be an absolute url", origin)
	}

	return strings.TrimRight(root.ResolveReference(base).String(), "/"), nil
}

// Compare posts the payload and decodes the result. Failures are returned as
// *StatusError or *TransportError carrying a user-facing message; a cancelled
// ctx is returned as is.
func (c *Client) Compare(ctx context.Context, p *Payload) (*Result, error) {
	if p == nil || p.ResumeFile == nil {
		return nil, fmt.Errorf("resume file is required")
	}

	requestID := uuid.NewString()
	logger := c.logger.With(zap.String("request_id", requestID))

	body, contentType, err := buildMultipart(p)
	if err != nil {
		return nil, fmt.Errorf("building compare payload: %w", err)
	}

	endpoint := c.APIURL + comparePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, rewriteTransportError(err)
	}

	req = c.setHeaders(req, requestID)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(logger, req)
	if err != nil {
		return nil, rewriteTransportError(err)
	}
	defer resp.Body.Close()

	return c.parseCompareResponse(logger, resp)
}
