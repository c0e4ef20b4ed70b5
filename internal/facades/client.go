package facades

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

// Console API routes.
const (
	SessionPath = "/api/v1/auth/session"
	CaptchaPath = "/api/v1/captcha"
	ThemePath   = "/api/v1/theme"
)

// maxErrorBody bounds how much of an error answer is read.
const maxErrorBody = 64 << 10

// apiClient issues JSON requests against the console API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(baseURL string, client *http.Client) apiClient {
	if client == nil {
		client = http.DefaultClient
	}
	return apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// do sends body (if any) as JSON and decodes a 2xx answer into out.
// Non-2xx answers become *models.ResponseError; a request that never got an answer
// is reported as a gateway timeout unless the caller's context ended.
func (c apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Log.Errorw("console unreachable", "method", method, "path", path, "error", err)
		return &models.ResponseError{StatusCode: http.StatusGatewayTimeout, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Log.Errorw("failed to decode response", "method", method, "path", path, "error", err)
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError reads the {"msg": "..."} envelope of an error answer.
// Bodies that are not the envelope are kept verbatim as the message.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	respErr := &models.ResponseError{StatusCode: resp.StatusCode}
	var envelope models.ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil {
		respErr.Msg = envelope.Msg
	} else {
		respErr.Msg = strings.TrimSpace(string(raw))
	}
	return respErr
}
