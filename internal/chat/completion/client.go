package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/remote-model-access/client/internal/chat/model"
	errx "github.com/remote-model-access/client/internal/core/error"
	logx "github.com/remote-model-access/client/pkg/logger"
)

// Request is the OpenAI-style chat completion request body.
type Request struct {
	Model     string          `json:"model"`
	Messages  []model.Message `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

// Response mirrors the slice of the completion response the client consumes:
// only choices[0].message.content is ever read.
type Response struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message model.Message `json:"message"`
}

// Client posts typed completion requests to a configured endpoint. The
// endpoint is used exactly as given; no path is appended.
type Client struct {
	http *http.Client
}

func New() *Client {
	return &Client{http: &http.Client{Timeout: 60 * time.Second}}
}

// NewWithHTTPClient lets tests and callers with special transport needs
// supply their own http.Client.
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{http: hc}
}

// ValidateEndpoint reports whether endpoint is a non-empty, well-formed
// absolute URL. The returned error is always an errx endpoint failure.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errx.WrapEndpoint(fmt.Errorf("empty endpoint"))
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return errx.WrapEndpoint(err)
	}
	if u.Scheme == "" || u.Host == "" {
		return errx.WrapEndpoint(fmt.Errorf("endpoint %q is not an absolute URL", endpoint))
	}
	return nil
}

// Complete sends the request and returns the trimmed content of the first
// choice. Failures come back classified: endpoint, transport (network or
// non-2xx status) or decode (encode failure, undecodable body, shape
// mismatch).
func (c *Client) Complete(ctx context.Context, endpoint, apiKey string, reqBody Request) (string, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return "", err
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", errx.WrapDecode(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errx.WrapEndpoint(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("endpoint", endpoint).Msg("completion round trip failed")
		return "", errx.WrapTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logx.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("completion returned non-2xx status")
		return "", errx.WrapTransport(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errx.WrapDecode(err)
	}
	if len(out.Choices) == 0 {
		return "", errx.WrapDecode(fmt.Errorf("response holds no choices"))
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
