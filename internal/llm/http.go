package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 8 << 20

// StatusError is a non-2xx answer from a model endpoint. Message is taken
// from the {"error": {...}} envelope Gemini and OpenAI both use, when present.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"` // gemini: RESOURCE_EXHAUSTED, ...
		Type    string `json:"type"`   // openai: invalid_request_error, ...
	} `json:"error"`
}

func statusError(status int, raw []byte) *StatusError {
	se := &StatusError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		se.Message = env.Error.Message
		se.Code = env.Error.Status
		if se.Code == "" {
			se.Code = env.Error.Type
		}
		return se
	}
	se.Message = truncate(string(bytes.TrimSpace(raw)), 512)
	return se
}

// PostJSON posts body to url and returns the response body of a 2xx answer.
// Any other status comes back as a *StatusError.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	callID := uuid.NewString()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_failed", "call_id", callID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("llm.http.body_close_failed", "call_id", callID, "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	logger.Debug("llm.http.response",
		"call_id", callID,
		"status", resp.StatusCode,
		"request_bytes", len(bs),
		"response_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		se := statusError(resp.StatusCode, raw)
		logger.Warn("llm.http.rejected", "call_id", callID, "status", se.Status, "code", se.Code, "message", se.Message)
		return nil, se
	}
	return raw, nil
}
