package amino

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"

	"github.com/google/uuid"
)

// apiRoot is the production REST endpoint.
const apiRoot = "https://service.narvii.com/api/v1"

var defaultUserAgent = fmt.Sprintf("amino-go/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)

// APIResponse carries the service-level status embedded in every JSON
// response body. The backend signals most errors here rather than through
// HTTP status codes.
type APIResponse struct {
	StatusCode int    `json:"api:statuscode"`
	Message    string `json:"api:message"`
	Duration   string `json:"api:duration,omitempty"`
}

// Err returns an APIError when the response carries a non-zero service
// status code, nil otherwise.
func (r *APIResponse) Err() error {
	if r.StatusCode != 0 {
		return &APIError{StatusCode: r.StatusCode, Message: r.Message}
	}
	return nil
}

// RequesterOptions configures a Requester.
type RequesterOptions struct {
	// SID is the session token attached as auth to every request.
	// Empty means unauthenticated.
	SID string

	// BaseURL overrides the API root, e.g. for tests.
	BaseURL string

	// HTTPClient is used to send requests. If nil, http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent overrides the default user agent.
	UserAgent string

	// Logger receives debug traces of every request.
	Logger *slog.Logger
}

// Requester builds and sends signed requests against the REST API. It is
// immutable: community scoping derives a new Requester rather than mutating
// shared state, so concurrent scoped calls cannot race.
type Requester struct {
	deviceID   string
	sid        string
	root       string
	ndcID      int64 // 0 means global scope
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewRequester creates a Requester for the given device identity.
func NewRequester(deviceID string, opts *RequesterOptions) *Requester {
	r := &Requester{
		deviceID:   deviceID,
		root:       apiRoot,
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
	}
	if opts != nil {
		r.sid = opts.SID
		if opts.BaseURL != "" {
			r.root = opts.BaseURL
		}
		if opts.HTTPClient != nil {
			r.httpClient = opts.HTTPClient
		}
		if opts.UserAgent != "" {
			r.userAgent = opts.UserAgent
		}
		r.logger = opts.Logger
	}
	return r
}

// Scoped derives a Requester whose calls hit the given community's API root.
// A zero ndcID returns to global scope.
func (r *Requester) Scoped(ndcID int64) *Requester {
	scoped := *r
	scoped.ndcID = ndcID
	return &scoped
}

// base returns the API root for the current scope.
func (r *Requester) base() string {
	if r.ndcID != 0 {
		return fmt.Sprintf("%s/x%d/s", r.root, r.ndcID)
	}
	return r.root + "/g/s"
}

// Do sends one signed request and returns the parsed JSON body. The body is
// returned regardless of HTTP status: the backend embeds its error codes in
// the JSON, and interpreting them is the caller's job. Only transport
// failures and non-JSON bodies are errors here.
//
// The method defaults to GET, or POST when a body is present; WithMethod
// overrides both. Body may be a JSON-marshalable value, []byte, or string.
func (r *Requester) Do(ctx context.Context, path string, body any, opts ...CallOption) (json.RawMessage, error) {
	cfg := callConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, &RequestError{Op: "encode", Path: path, Err: err}
	}

	method := http.MethodGet
	if payload != nil {
		method = http.MethodPost
	}
	if cfg.method != "" {
		method = cfg.method
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base()+path, reader)
	if err != nil {
		return nil, &RequestError{Op: "build", Path: path, Err: err}
	}

	req.Header.Set("NDCDEVICEID", r.deviceID)
	req.Header.Set("User-Agent", r.userAgent)
	if r.sid != "" {
		req.Header.Set("NDCAUTH", "sid="+r.sid)
	}
	if payload != nil {
		req.Header.Set("NDC-MSG-SIG", SignBody(payload))
	}
	if cfg.contentType != "" {
		req.Header.Set("Content-Type", cfg.contentType)
	}

	reqID := uuid.NewString()
	if r.logger != nil {
		r.logger.Debug("sending request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int64("ndc_id", r.ndcID),
			slog.String("req_id", reqID),
		)
	}

	resp, err := r.client(&cfg).Do(req)
	if err != nil {
		return nil, &RequestError{Op: "send", Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Op: "read", Path: path, Err: err}
	}
	if !json.Valid(data) {
		return nil, &RequestError{Op: "decode", Path: path, Err: fmt.Errorf("response is not JSON (status %d)", resp.StatusCode)}
	}

	if r.logger != nil {
		r.logger.Debug("received response",
			slog.Int("status", resp.StatusCode),
			slog.String("req_id", reqID),
		)
	}

	return json.RawMessage(data), nil
}

// client returns the HTTP client for one call, routed through a forward
// proxy when the call asks for one.
func (r *Requester) client(cfg *callConfig) *http.Client {
	if cfg.proxy == nil {
		return r.httpClient
	}
	proxied := *r.httpClient
	proxied.Transport = &http.Transport{Proxy: http.ProxyURL(cfg.proxy)}
	return &proxied
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
}

// callConfig holds per-call settings.
type callConfig struct {
	method      string
	contentType string
	proxy       *url.URL
}
