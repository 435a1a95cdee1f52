package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/pkg/constants"
)

// adminClient calls the administrative routes of a running server.
type adminClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAdminClient(opts *globalOptions) (*adminClient, error) {
	if opts.server == "" {
		return nil, fmt.Errorf("--server is required (or set AUTHCORE_SERVER)")
	}
	if opts.adminToken == "" {
		return nil, fmt.Errorf("--admin-token is required (or set AUTHCORE_ADMIN_TOKEN)")
	}
	return &adminClient{
		baseURL: strings.TrimRight(opts.server, "/"),
		token:   opts.adminToken,
		http:    &http.Client{Timeout: opts.timeout},
	}, nil
}

// do sends body as JSON and returns the raw response body on 2xx.
func (c *adminClient) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(constants.HeaderAdminToken, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// handleErrorResponse turns an error body into a readable error.
func handleErrorResponse(status int, body []byte) error {
	var errResp dto.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("server returned %d: %s", status, strings.TrimSpace(string(body)))
	}
	if errResp.Message != "" {
		return fmt.Errorf("server returned %d (%s): %s", status, errResp.Error, errResp.Message)
	}
	return fmt.Errorf("server returned %d (%s): %s", status, errResp.Error, errResp.ErrorDescription)
}
