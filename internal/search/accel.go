package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

// AccelConfig configures the accelerated (GPU-resident) search sidecar.
type AccelConfig struct {
	URL     string
	Timeout time.Duration
}

func ValidateAccelConfig(cfg AccelConfig) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return fmt.Errorf("accel search URL is required")
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return fmt.Errorf("invalid accel search URL %q; expected absolute URL like http://accel-search:7700", cfg.URL)
	}
	return nil
}

// accelBackend talks to a GPU-backed exact-search sidecar over HTTP. The
// corpus matrix is mirrored to the sidecar on Build; any fault at search time
// is surfaced to the supervising index, which downgrades to CPU for the rest
// of the process.
type accelBackend struct {
	log     *logger.Logger
	baseURL string
	http    *http.Client
}

func NewAccelBackend(log *logger.Logger, cfg AccelConfig) (Backend, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateAccelConfig(cfg); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &accelBackend{
		log:     log.With("service", "AccelSearchBackend"),
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (b *accelBackend) Name() string { return "accel" }

type accelBuildRequest struct {
	Version string      `json:"version"`
	Vectors [][]float32 `json:"vectors"`
}

type accelSearchRequest struct {
	Version string    `json:"version"`
	Vector  []float32 `json:"vector"`
	TopK    int       `json:"top_k"`
}

type accelSearchResult struct {
	Version string `json:"version"`
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func (b *accelBackend) Build(ctx context.Context, version string, matrix [][]float32) error {
	const op = "build"
	if version == "" {
		return opErr(op, OperationErrorValidation, "build version required", nil)
	}
	if len(matrix) == 0 {
		return opErr(op, OperationErrorValidation, "empty corpus matrix", nil)
	}
	return b.doJSON(ctx, op, http.MethodPut, "/index", accelBuildRequest{Version: version, Vectors: matrix}, nil)
}

// Search asks the sidecar for the top-k hits against the build tagged with
// version. The sidecar holds a single index that is replaced on every Build,
// so it echoes the version its answer was computed from; a mismatch means a
// newer build landed mid-flight and the hit indices belong to a different
// corpus ordering.
func (b *accelBackend) Search(ctx context.Context, version string, query []float32, k int) ([]Hit, error) {
	const op = "search"
	if version == "" {
		return nil, opErr(op, OperationErrorValidation, "build version required", nil)
	}
	if len(query) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if k <= 0 {
		k = 10
	}
	var result accelSearchResult
	if err := b.doJSON(ctx, op, http.MethodPost, "/search", accelSearchRequest{Version: version, Vector: query, TopK: k}, &result); err != nil {
		return nil, err
	}
	if result.Version != version {
		return nil, fmt.Errorf("accel search: built=%s queried=%s: %w", result.Version, version, ErrIndexSuperseded)
	}
	out := make([]Hit, 0, len(result.Results))
	for _, r := range result.Results {
		out = append(out, Hit{Index: r.Index, Score: r.Score})
	}
	return out, nil
}

func (b *accelBackend) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "accel search request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorServerFault,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("accel search http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode response failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
