package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/visionpilot/internal/perception"
)

const (
	// DefaultTimeout bounds one detect call.
	DefaultTimeout = 5 * time.Second

	maxResponseBytes = 4 << 20
	statusOK         = "ok"
)

// Options configures a Client.
type Options struct {
	// Confidence is forwarded to the detector as its threshold.
	Confidence float64

	// Timeout bounds each request. Zero uses DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the transport. Used by tests.
	HTTPClient *http.Client
}

// Client calls the detector over HTTP.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	base       string
	confidence float64
	http       *http.Client
}

var _ perception.Provider = (*Client)(nil)

// New creates a client for the detector at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		base:       strings.TrimRight(baseURL, "/"),
		confidence: opts.Confidence,
		http:       hc,
	}
}

type region struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type detectRequest struct {
	Window     region  `json:"window"`
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Detections []perception.Detection `json:"detections"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Detect asks the detector for detections in the frame's window region.
// Transport failures wrap perception.ErrProviderUnavailable.
func (c *Client) Detect(ctx context.Context, frame perception.Frame) ([]perception.Detection, error) {
	w := frame.Window
	body, err := json.Marshal(detectRequest{
		Window:     region{Left: w.Left, Top: w.Top, Width: w.Width, Height: w.Height},
		Confidence: c.confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out detectResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.Detections == nil {
		out.Detections = []perception.Detection{}
	}
	return out.Detections, nil
}

// Health checks that the detector is up with its model loaded.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	var hs HealthStatus
	if err := c.do(req, &hs); err != nil {
		return err
	}
	if hs.Status != statusOK {
		return fmt.Errorf("%w: status %q %s", ErrUnhealthy, hs.Status, hs.Error)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", perception.ErrProviderUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrBadResponse, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d: %s", ErrBadResponse, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrBadResponse, req.URL.Path, err)
	}
	return nil
}
