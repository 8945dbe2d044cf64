// Package judge is the client for the remote code-execution service.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codigloo/contestd/internal/errors"
)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		http:    hc,
	}
}

// RunRequest executes the code against a single visible test case.
type RunRequest struct {
	Code       string `json:"code"`
	Language   string `json:"language"`
	QuestionID string `json:"questionId"`
	TestCaseID string `json:"testCaseId"`
	Input      string `json:"input"`
}

type RunResponse struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compileOutput"`
	Passed        bool   `json:"passed"`
	Message       string `json:"message"`
}

// Run executes one test case. The token is passed per call; the client holds
// no ambient credentials.
func (c *Client) Run(ctx context.Context, token string, req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	if err := c.post(ctx, token, "/run", req, &resp); err != nil {
		return nil, err
	}

	normalize(&resp)
	return &resp, nil
}

// normalize clears the literal "null"/"undefined" strings some judge
// backends emit for absent output streams.
func normalize(r *RunResponse) {
	r.Stdout = cleanStream(r.Stdout)
	r.Stderr = cleanStream(r.Stderr)
	r.CompileOutput = cleanStream(r.CompileOutput)
}

func cleanStream(s string) string {
	switch strings.TrimSpace(s) {
	case "null", "undefined":
		return ""
	default:
		return s
	}
}

func (c *Client) post(ctx context.Context, token, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("judge: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("judge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable, errors.WithCause(err), errors.WithMessagef("judge unreachable"))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errors.New(errors.CodeUnauthenticated, errors.WithMessagef("judge rejected credentials"))
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New(errors.CodeUnavailable, errors.WithMessagef("judge status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("judge: decode response: %w", err)
	}

	return nil
}
