// Package transcribe is the transcription service client: one media
// artifact in, plain transcript text out.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/pkg/errors"

	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/service"
)

// DefaultModel is the transcription model requested when the caller
// does not override it.
const DefaultModel = "scribe-1"

// Instruction is the fixed instruction string sent with every
// transcription request. Part of the service contract.
const Instruction = "Transcribe the spoken audio of this recording verbatim. " +
	"Return plain text only, with no timestamps, speaker labels or commentary."

const defaultTimeout = 5 * time.Minute

// Client talks to the transcription endpoint. Failures are classified
// as transfer failures for the transcription stage and never retried
// here.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel overrides the transcription model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// NewClient creates a transcription client for the given endpoint.
func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.With("component", "transcribe_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the artifact as a multipart request and returns
// the transcript text.
func (c *Client) Transcribe(ctx context.Context, artifact *capture.Artifact) (string, error) {
	if artifact == nil || artifact.Empty() {
		return "", service.NewError(service.StageTranscription, errors.New("no media to transcribe"))
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", c.model); err != nil {
		return "", service.NewError(service.StageTranscription, err)
	}
	if err := writer.WriteField("instruction", Instruction); err != nil {
		return "", service.NewError(service.StageTranscription, err)
	}

	// CreateFormFile hardcodes octet-stream; build the part by hand so
	// the service sees the real container type.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+artifact.FileName+`"`)
	header.Set("Content-Type", artifact.MimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", service.NewError(service.StageTranscription, err)
	}
	if _, err := part.Write(artifact.Bytes); err != nil {
		return "", service.NewError(service.StageTranscription, err)
	}
	if err := writer.Close(); err != nil {
		return "", service.NewError(service.StageTranscription, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", service.NewError(service.StageTranscription, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Uploading media for transcription",
		"file", artifact.FileName, "bytes", len(artifact.Bytes), "model", c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", service.NewError(service.StageTranscription, errors.Wrap(err, "calling transcription service"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", service.NewError(service.StageTranscription, errors.Wrap(err, "reading transcription response"))
	}

	if resp.StatusCode != http.StatusOK {
		return "", service.NewError(service.StageTranscription, service.ClassifyStatus(resp.StatusCode, respBody))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", service.NewError(service.StageTranscription, errors.Wrap(err, "parsing transcription response"))
	}

	c.logger.Info("Transcription complete", "chars", len(parsed.Text))
	return parsed.Text, nil
}
