package xray

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ScanService defines the remote operations the screens need.
// It is implemented by *Client and can be replaced in tests.
type ScanService interface {
	ListScans(ctx context.Context, query ScanQuery) ([]Scan, error)
	GetScan(ctx context.Context, id ScanID) (Scan, error)
	CreateScan(ctx context.Context, form UploadForm) (Scan, error)
	ProbeImage(ctx context.Context, imageURL string) (ImageInfo, error)
}

// Ensure Client implements ScanService at compile time.
var _ ScanService = (*Client)(nil)

// Client talks to the scan REST API.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	userAgent     string
	uploadTimeout time.Duration
	maxBody       int64
	log           zerolog.Logger
}

const (
	// DefaultBaseURL matches the development backend.
	DefaultBaseURL       = "http://localhost:8000/api"
	DefaultUploadTimeout = 30 * time.Second

	defaultUserAgent = "xrayview/0.1"
	maxBodyBytes     = 10 << 20
	sniffBytes       = 512
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithUploadTimeout bounds CreateScan. Non-positive values keep the default.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.uploadTimeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL
// (e.g. http://localhost:8000/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:       base,
		http:          &http.Client{},
		userAgent:     defaultUserAgent,
		uploadTimeout: DefaultUploadTimeout,
		maxBody:       maxBodyBytes,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListScans retrieves the scan collection matching query, in API order.
func (c *Client) ListScans(ctx context.Context, query ScanQuery) ([]Scan, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	u := c.endpoint("scans/")
	u.RawQuery = query.Values().Encode()

	body, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	scans, err := decodeScanList(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return scans, nil
}

// GetScan retrieves one scan.
func (c *Client) GetScan(ctx context.Context, id ScanID) (Scan, error) {
	if c == nil {
		return Scan{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(string(id)) == "" {
		return Scan{}, fmt.Errorf("scan id required")
	}
	u := c.endpoint("scans/" + url.PathEscape(string(id)) + "/")
	body, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return Scan{}, err
	}
	var scan Scan
	if err := json.Unmarshal(body, &scan); err != nil {
		return Scan{}, fmt.Errorf("decode response: %w", err)
	}
	return scan, nil
}

// CreateScan validates form and uploads it as multipart/form-data. No request
// is made when validation fails. The call is bounded by the upload timeout.
func (c *Client) CreateScan(ctx context.Context, form UploadForm) (Scan, error) {
	if c == nil {
		return Scan{}, fmt.Errorf("client is nil")
	}
	if err := form.Validate(); err != nil {
		return Scan{}, err
	}
	body, contentType, err := form.encode()
	if err != nil {
		return Scan{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	respBody, err := c.do(ctx, http.MethodPost, c.endpoint("scans/"), body, contentType)
	if err != nil {
		return Scan{}, err
	}
	var created Scan
	if len(strings.TrimSpace(string(respBody))) > 0 {
		if err := json.Unmarshal(respBody, &created); err != nil {
			c.log.Warn().Err(err).Msg("upload succeeded but response was not a scan")
		}
	}
	return created, nil
}

// ProbeImage loads imageURL and confirms it is an image. Failures wrap
// ErrImageUnavailable.
func (c *Client) ProbeImage(ctx context.Context, imageURL string) (ImageInfo, error) {
	if c == nil {
		return ImageInfo{}, fmt.Errorf("client is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ImageInfo{}, fmt.Errorf("%w: status %d", ErrImageUnavailable, resp.StatusCode)
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		declared := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(declared, "image/") || n == 0 {
			return ImageInfo{}, fmt.Errorf("%w: content type %s", ErrImageUnavailable, contentType)
		}
		contentType = declared
	}
	rest, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	return ImageInfo{URL: imageURL, ContentType: contentType, Size: int64(n) + rest}, nil
}

func (c *Client) endpoint(rel string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + rel
	if c.baseURL.RawPath != "" {
		u.RawPath = ""
	}
	return &u
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("request_id", requestID).Str("method", method).Str("url", u.String()).Err(err).Msg("request failed")
		return nil, &NetworkError{Op: "execute request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &NetworkError{Op: "read response", Err: err}
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%s %s: %w (over %d bytes)", method, u.Path, ErrResponseTooLarge, c.maxBody)
	}
	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newServerError(u.Path, resp.StatusCode, data)
	}
	return data, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
