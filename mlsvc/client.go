package mlsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/metric"
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
	"github.com/Mohammedsanin/NeuroBlock/training"
)

// Service routes. The path layout is fixed by the ML service.
const (
	healthPath  = "/api/health"
	uploadPath  = "/api/upload"
	trainPath   = "/api/train"
	predictPath = "/api/predict"
)

// Messages the service uses to signal specific failure modes. They are
// matched verbatim; the service has no machine-readable error codes.
const (
	msgInvalidSession = "Invalid session ID"
	msgNoModel        = "No trained model found. Train a model first."
)

// Config configures the ML service client.
type Config struct {
	// BaseURL is the root of the ML service, e.g. "http://localhost:5000".
	BaseURL string

	// Timeout bounds each HTTP request (default: 30s). Training runs can
	// be slow; size this for the largest expected dataset.
	Timeout time.Duration

	// UploadRetry governs retries for dataset uploads. Uploads are
	// idempotent on the service side (each success mints a fresh
	// session), so transient failures are safe to retry. Training is
	// never retried regardless of this setting.
	UploadRetry errors.RetryConfig

	// Logger for request logging (optional, defaults to slog.Default()).
	Logger *slog.Logger

	// Metrics receives per-operation counters and latencies (optional).
	Metrics *metric.Metrics
}

// Client talks to the ML backend service over HTTP. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      errors.RetryConfig
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// Client implements the training backend contract.
var _ training.Backend = (*Client)(nil)

// NewClient creates an ML service client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("base URL is required"), "Client", "NewClient", "config check")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.WrapInvalid(err, "Client", "NewClient", "invalid base URL")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retry := cfg.UploadRetry
	if retry.MaxRetries == 0 && retry.InitialDelay == 0 {
		retry = errors.DefaultRetryConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// healthResponse is the service's liveness payload.
type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorResponse is the service's uniform error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// Health probes the service's health endpoint. Any failure, transport or
// otherwise, comes back as a transient unavailability error.
func (c *Client) Health(ctx context.Context) error {
	started := time.Now()
	err := c.health(ctx)
	c.metrics.RecordBackendRequest("health", statusLabel(err), time.Since(started))
	return err
}

func (c *Client) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return errors.WrapInvalid(err, "Client", "Health", "build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrServiceUnavailable, err),
			"Client", "Health", "service probe")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.WrapTransient(
			fmt.Errorf("%w: HTTP %d", errors.ErrServiceUnavailable, resp.StatusCode),
			"Client", "Health", "service probe")
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: malformed health response: %v", errors.ErrServiceUnavailable, err),
			"Client", "Health", "decode response")
	}
	if health.Status != "healthy" {
		return errors.WrapTransient(
			fmt.Errorf("%w: service reports %q", errors.ErrServiceUnavailable, health.Status),
			"Client", "Health", "service probe")
	}
	return nil
}

// UploadDataset sends a dataset file to the service and returns the handle
// for the session it opened. The whole file is buffered up front so
// transient failures can be retried with an identical body.
func (c *Client) UploadDataset(ctx context.Context, fileName string, file io.Reader) (*pipeline.DatasetHandle, error) {
	started := time.Now()
	handle, err := c.uploadDataset(ctx, fileName, file)
	c.metrics.RecordBackendRequest("upload", statusLabel(err), time.Since(started))
	return handle, err
}

func (c *Client) uploadDataset(ctx context.Context, fileName string, file io.Reader) (*pipeline.DatasetHandle, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Client", "UploadDataset", "build multipart body")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, errors.Wrap(err, "Client", "UploadDataset", "read dataset file")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "Client", "UploadDataset", "finalize multipart body")
	}

	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	var handle *pipeline.DatasetHandle
	for attempt := 0; ; attempt++ {
		handle, err = c.doUpload(ctx, payload, contentType)
		if err == nil {
			break
		}
		if !c.retry.ShouldRetry(err, attempt) {
			return nil, err
		}

		delay := c.retry.BackoffDelay(attempt)
		c.logger.Warn("dataset upload failed, retrying",
			"attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, errors.WrapTransient(ctx.Err(), "Client", "UploadDataset", "wait for retry")
		case <-time.After(delay):
		}
	}

	c.logger.Info("dataset uploaded",
		"session_id", handle.SessionID,
		"file_name", handle.FileName,
		"rows", handle.Rows,
		"columns", len(handle.Columns))
	return handle, nil
}

func (c *Client) doUpload(ctx context.Context, payload []byte, contentType string) (*pipeline.DatasetHandle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "UploadDataset", "build request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrServiceUnavailable, err),
			"Client", "UploadDataset", "send request")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, errors.WrapTransient(
				fmt.Errorf("%w: %s", errors.ErrServiceUnavailable, msg),
				"Client", "UploadDataset", "service error")
		}
		// 4xx means the file itself was rejected; retrying the same
		// bytes cannot succeed
		return nil, errors.NewValidation("file", "%s", msg)
	}

	var handle pipeline.DatasetHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: malformed upload response: %v", errors.ErrServiceUnavailable, err),
			"Client", "UploadDataset", "decode response")
	}
	if err := handle.Validate(); err != nil {
		return nil, errors.Wrap(err, "Client", "UploadDataset", "validate upload response")
	}
	return &handle, nil
}

// Train submits a training request and blocks for the result. The request
// is sent exactly once; a failed run is surfaced, never resubmitted,
// because the service trains as a side effect and a blind retry could
// train twice.
func (c *Client) Train(ctx context.Context, request training.Request) (*training.Result, error) {
	started := time.Now()
	result, err := c.train(ctx, request)
	c.metrics.RecordBackendRequest("train", statusLabel(err), time.Since(started))
	return result, err
}

func (c *Client) train(ctx context.Context, request training.Request) (*training.Result, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Train", "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+trainPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Train", "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrServiceUnavailable, err),
			"Client", "Train", "send request")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp)
		if msg == msgInvalidSession {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrSessionExpired, msg),
				"Client", "Train", "session check")
		}
		// the service message is surfaced verbatim so the caller sees
		// the real reason ("Training failed: Input contains NaN", a
		// missing field, ...)
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s", errors.ErrTrainingFailed, msg),
			"Client", "Train", "training request")
	}

	var result training.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: malformed training response: %v", errors.ErrTrainingFailed, err),
			"Client", "Train", "decode response")
	}
	return &result, nil
}

// predictRequest is the prediction call payload.
type predictRequest struct {
	SessionID string           `json:"session_id"`
	Data      []map[string]any `json:"data"`
}

// predictResponse is the prediction call result.
type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Predict scores new rows against the session's trained model. Rows are
// maps of feature name to value, matching the training columns.
func (c *Client) Predict(ctx context.Context, sessionID string, rows []map[string]any) ([]float64, error) {
	started := time.Now()
	predictions, err := c.predict(ctx, sessionID, rows)
	c.metrics.RecordBackendRequest("predict", statusLabel(err), time.Since(started))
	return predictions, err
}

func (c *Client) predict(ctx context.Context, sessionID string, rows []map[string]any) ([]float64, error) {
	payload, err := json.Marshal(predictRequest{SessionID: sessionID, Data: rows})
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Predict", "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Predict", "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrServiceUnavailable, err),
			"Client", "Predict", "send request")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp)
		switch {
		case msg == msgInvalidSession:
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrSessionExpired, msg),
				"Client", "Predict", "session check")
		case msg == msgNoModel:
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrNoResult, msg),
				"Client", "Predict", "model check")
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, errors.WrapTransient(
				fmt.Errorf("%w: %s", errors.ErrServiceUnavailable, msg),
				"Client", "Predict", "service error")
		default:
			return nil, errors.WrapInvalid(
				fmt.Errorf("prediction rejected: %s", msg),
				"Client", "Predict", "prediction request")
		}
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("malformed prediction response: %w", err),
			"Client", "Predict", "decode response")
	}
	return out.Predictions, nil
}

// readErrorMessage extracts the service's error envelope, falling back to
// the bare status when the body is not the expected JSON.
func readErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil {
		var envelope errorResponse
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error != "" {
			return envelope.Error
		}
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)
}

// drainAndClose empties the body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
