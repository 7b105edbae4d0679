// Package box is a small client for the file platform's REST API: download
// URLs for skill-scoped tokens and skill card writes.
package box

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx response from the platform.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("box %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the platform API. Each call carries the token it should act
// with, since skill tokens are scoped to one file.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for baseURL (e.g. https://api.box.com/2.0).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			// The content endpoint answers with a redirect to the download URL;
			// we want the location, not the bytes.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// DownloadURL resolves a temporary download URL for fileID.
func (c *Client) DownloadURL(ctx context.Context, token, fileID string) (string, error) {
	path := "/files/" + fileID + "/content"
	resp, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusFound, http.StatusMovedPermanently, http.StatusSeeOther, http.StatusTemporaryRedirect:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", fmt.Errorf("box GET %s: redirect without location", path)
		}
		return loc, nil
	case http.StatusAccepted:
		// File not ready for download yet; the caller's retry policy handles it.
		return "", &APIError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode, Body: "file not ready, retry-after " + resp.Header.Get("Retry-After")}
	default:
		return "", apiError(resp, http.MethodGet, path)
	}
}

// UpdateSkillInvocation replaces the skill cards on a file and sets the
// invocation status. It returns the raw platform response.
func (c *Client) UpdateSkillInvocation(ctx context.Context, token, skillID string, update SkillInvocationUpdate) (json.RawMessage, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("marshal invocation update: %w", err)
	}
	path := "/skill_invocations/" + skillID
	resp, err := c.do(ctx, http.MethodPut, path, token, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, apiError(resp, http.MethodPut, path)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read invocation response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(raw), nil
}

// DeleteSkillCards removes every skill card on fileID. A file without cards
// is not an error.
func (c *Client) DeleteSkillCards(ctx context.Context, token, fileID string) error {
	path := "/files/" + fileID + "/metadata/global/boxSkillsCards"
	resp, err := c.do(ctx, http.MethodDelete, path, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode/100 == 2 {
		return nil
	}
	return apiError(resp, http.MethodDelete, path)
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("box %s %s: %w", method, path, err)
	}
	return resp, nil
}

func apiError(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
