package guide

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/service"
)

const defaultTimeout = 5 * time.Minute

// Client talks to the guide-generation endpoint. Failures are
// classified for the generation stage and never retried here.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a generation client for the given endpoint.
func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.With("component", "guide_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generateRequest is the JSON body: the fixed prompt plus the media
// payload inline.
type generateRequest struct {
	Prompt Prompt       `json:"prompt"`
	Media  mediaPayload `json:"media"`
}

type mediaPayload struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Markdown string `json:"markdown"`
}

// Generate sends the prompt and artifact to the service and returns
// the generated markdown.
func (c *Client) Generate(ctx context.Context, in PromptInput, artifact *capture.Artifact) (string, error) {
	if artifact == nil || artifact.Empty() {
		return "", service.NewError(service.StageGeneration, errors.New("no media to generate from"))
	}

	reqBody := generateRequest{
		Prompt: BuildPrompt(in),
		Media: mediaPayload{
			MimeType: artifact.MimeType,
			Data:     base64.StdEncoding.EncodeToString(artifact.Bytes),
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", service.NewError(service.StageGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", service.NewError(service.StageGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Requesting guide generation",
		"format", in.Format, "transcript_chars", len(in.Transcript), "media_bytes", len(artifact.Bytes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", service.NewError(service.StageGeneration, errors.Wrap(err, "calling generation service"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", service.NewError(service.StageGeneration, errors.Wrap(err, "reading generation response"))
	}

	if resp.StatusCode != http.StatusOK {
		return "", service.NewError(service.StageGeneration, service.ClassifyStatus(resp.StatusCode, respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", service.NewError(service.StageGeneration, errors.Wrap(err, "parsing generation response"))
	}
	if parsed.Markdown == "" {
		return "", service.NewError(service.StageGeneration, errors.New("service returned an empty document"))
	}

	c.logger.Info("Guide generated", "format", in.Format, "chars", len(parsed.Markdown))
	return parsed.Markdown, nil
}
