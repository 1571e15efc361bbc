package guide

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/service"
)

func testArtifact() *capture.Artifact {
	return &capture.Artifact{
		Bytes:    []byte{0x1a, 0x45, 0xdf, 0xa3},
		MimeType: capture.MimeVideoWebM,
		FileName: "screen-recording.webm",
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("guide")
	require.NoError(t, err)
	assert.Equal(t, FormatGuide, f)

	f, err = ParseFormat("article")
	require.NoError(t, err)
	assert.Equal(t, FormatArticle, f)

	_, err = ParseFormat("blog")
	assert.Error(t, err)
}

func TestBuildPromptEmbedsInputs(t *testing.T) {
	p := BuildPrompt(PromptInput{
		Transcript:       "first do this",
		VideoDescription: "a settings walkthrough",
		UserInstructions: "keep it short",
		Format:           FormatArticle,
	})

	assert.Equal(t, SystemRole, p.SystemRole)
	assert.Contains(t, p.TaskInstructions, "knowledge-base article")
	assert.Equal(t, "first do this", p.Transcript)
	assert.Equal(t, "a settings walkthrough", p.VideoDescription)
	assert.Equal(t, "keep it short", p.UserInstructions)
	assert.Equal(t, FormatArticle, p.Format)

	p = BuildPrompt(PromptInput{Format: FormatGuide})
	assert.Contains(t, p.TaskInstructions, "step-by-step how-to guide")
}

func TestPromptFieldOrderOnTheWire(t *testing.T) {
	// The embedded field order is part of the contract; verify the
	// serialized form, not just the struct.
	data, err := json.Marshal(BuildPrompt(PromptInput{Format: FormatGuide}))
	require.NoError(t, err)

	keys := regexp.MustCompile(`"(\w+)":`).FindAllStringSubmatch(string(data), -1)
	var order []string
	for _, k := range keys {
		order = append(order, k[1])
	}
	assert.Equal(t, []string{
		"system_role",
		"task_instructions",
		"transcript",
		"video_description",
		"user_instructions",
		"format",
	}, order)
}

func TestGenerateSendsPromptAndMedia(t *testing.T) {
	var gotAuth string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"markdown":"# Guide\n\n1. Step one"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	md, err := c.Generate(context.Background(), PromptInput{
		Transcript: "click the button",
		Format:     FormatGuide,
	}, testArtifact())
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n\n1. Step one", md)
	assert.Equal(t, "Bearer secret-key", gotAuth)

	var req struct {
		Prompt Prompt `json:"prompt"`
		Media  struct {
			MimeType string `json:"mime_type"`
			Data     string `json:"data"`
		} `json:"media"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, "click the button", req.Prompt.Transcript)
	assert.Equal(t, capture.MimeVideoWebM, req.Media.MimeType)

	decoded, err := base64.StdEncoding.DecodeString(req.Media.Data)
	require.NoError(t, err)
	assert.Equal(t, testArtifact().Bytes, decoded)
}

func TestGenerateClassifiesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.Generate(context.Background(), PromptInput{Format: FormatGuide}, testArtifact())
	require.Error(t, err)

	stage, ok := service.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, service.StageGeneration, stage)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateRejectsEmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markdown":""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.Generate(context.Background(), PromptInput{Format: FormatGuide}, testArtifact())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}
