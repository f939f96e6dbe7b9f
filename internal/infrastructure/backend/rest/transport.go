package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

const (
	requestIDHeader  = "X-Request-Id"
	maxResponseBytes = 32 << 20
	maxErrorBytes    = 4096
)

// call describes one backend request. body is invoked per attempt so retries resend it.
type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      func() (io.Reader, string, error)
	// once disables retries for calls that are not safe to repeat.
	once     bool
	validate func(raw []byte) error
}

func jsonBody(payload any) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

type formFile struct {
	field string
	file  domain.ImageFile
}

func multipartBody(fields map[string]string, files []formFile) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		for key, value := range fields {
			if err := writer.WriteField(key, value); err != nil {
				return nil, "", err
			}
		}
		for _, f := range files {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.file.Name))
			contentType := f.file.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			header.Set("Content-Type", contentType)
			part, err := writer.CreatePart(header)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(f.file.Data); err != nil {
				return nil, "", err
			}
		}
		if err := writer.Close(); err != nil {
			return nil, "", err
		}
		return &buf, writer.FormDataContentType(), nil
	}
}

// do runs c through the limiter and resilience executor, decodes the response into out
// and maps failures onto domain error kinds.
func (c *Client) do(ctx context.Context, req call, out any) error {
	attempt := func(ctx context.Context) error {
		return c.send(ctx, req, out)
	}

	var err error
	switch {
	case c.executor == nil:
		err = attempt(ctx)
	case req.once:
		err = c.executor.ExecuteOnce(ctx, "backend."+req.operation, attempt, classifyBackendError)
	default:
		err = c.executor.Execute(ctx, "backend."+req.operation, attempt, classifyBackendError)
	}
	return mapBackendError(req.operation, err)
}

func (c *Client) send(ctx context.Context, req call, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("backend %s rate limit: %w", req.operation, err)
		}
	}

	var body io.Reader
	var contentType string
	if req.body != nil {
		var err error
		body, contentType, err = req.body()
		if err != nil {
			return &encodeError{operation: req.operation, err: err}
		}
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return &encodeError{operation: req.operation, err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := c.token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req.operation, outcomeNetworkError, start)
		return fmt.Errorf("backend %s request: %w", req.operation, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend_request",
		"operation", req.operation,
		"request_id", requestID,
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	if resp.StatusCode >= 300 {
		statusErr := newHTTPStatusError(req.operation, resp)
		c.observe(req.operation, outcomeForStatus(resp.StatusCode), start)
		if resp.StatusCode == http.StatusUnauthorized {
			c.dropSession(ctx)
		}
		return statusErr
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(req.operation, outcomeNetworkError, start)
		return fmt.Errorf("read backend %s response: %w", req.operation, err)
	}
	c.observe(req.operation, outcomeSuccess, start)

	if out == nil {
		return nil
	}
	if req.validate != nil {
		if err := req.validate(raw); err != nil {
			return &invalidResponseError{operation: req.operation, err: err}
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &invalidResponseError{operation: req.operation, err: err}
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	if c.sessions == nil {
		return ""
	}
	session, err := c.sessions.Load(ctx)
	if err != nil {
		c.logger.Warn("session_load_failed", "error", err)
		return ""
	}
	if !session.Valid() {
		return ""
	}
	return session.Token
}

func (c *Client) dropSession(ctx context.Context) {
	if c.sessions == nil {
		return
	}
	if err := c.sessions.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("session_clear_failed", "error", err)
		return
	}
	c.logger.Info("session_cleared", "reason", "unauthorized")
}

const (
	outcomeSuccess      = "success"
	outcomeClientError  = "client_error"
	outcomeServerError  = "server_error"
	outcomeUnauthorized = "unauthorized"
	outcomeNetworkError = "network_error"
)

func outcomeForStatus(code int) string {
	switch {
	case code == http.StatusUnauthorized:
		return outcomeUnauthorized
	case code >= 500:
		return outcomeServerError
	default:
		return outcomeClientError
	}
}

func (c *Client) observe(operation, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(operation, outcome, time.Since(start))
	}
}

func newHTTPStatusError(operation string, resp *http.Response) *HTTPStatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    errorMessage(body),
		Body:       string(bytes.TrimSpace(body)),
	}
}

// errorMessage extracts the backend's message from {"error": ...}, {"message": ...} or {"msg": ...}.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Error != "":
		return payload.Error
	case payload.Message != "":
		return payload.Message
	default:
		return payload.Msg
	}
}

type encodeError struct {
	operation string
	err       error
}

func (e *encodeError) Error() string {
	return fmt.Sprintf("encode backend %s request: %v", e.operation, e.err)
}

func (e *encodeError) Unwrap() error { return e.err }

type invalidResponseError struct {
	operation string
	err       error
}

func (e *invalidResponseError) Error() string {
	return fmt.Sprintf("invalid backend %s response: %v", e.operation, e.err)
}

func (e *invalidResponseError) Unwrap() error { return e.err }

func isInvalidResponse(err error) bool {
	var target *invalidResponseError
	return errors.As(err, &target)
}
