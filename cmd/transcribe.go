package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/profile"
	"github.com/capscribe/capscribe/internal/transcribe"
)

// NewTranscribeCommand creates the 'transcribe' command
func NewTranscribeCommand() *cobra.Command {
	var (
		outputFile string
		model      string
	)

	cmd := &cobra.Command{
		Use:           "transcribe <recording>",
		Short:         "Transcribe a recording's spoken audio",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Transcribe to stdout
  capscribe transcribe screen-recording.webm

  # Transcribe to a file
  capscribe transcribe audio-recording.weba -o transcript.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := loadArtifact(args[0])
			if err != nil {
				return err
			}

			pm, err := profile.LoadDefault()
			if err != nil {
				return err
			}
			apiKey, err := pm.APIKey()
			if err != nil {
				return err
			}

			client := transcribe.NewClient(pm.TranscribeEndpoint(), apiKey, transcribe.WithModel(model))
			transcript, err := client.Transcribe(cmd.Context(), artifact)
			if err != nil {
				return err
			}

			return writeResult(outputFile, transcript)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputFile, "output", "o", "", "Write the transcript to a file instead of stdout")
	flags.StringVar(&model, "model", transcribe.DefaultModel, "Transcription model")

	return cmd
}

// loadArtifact reads a recording file into an artifact, deriving the
// MIME type from the file extension.
func loadArtifact(path string) (*capture.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read recording")
	}
	ext := filepath.Ext(path)
	mimeType, ok := capture.MimeForExtension(ext)
	if !ok {
		return nil, errors.Errorf("unsupported recording extension %q", ext)
	}
	return &capture.Artifact{
		Bytes:    data,
		MimeType: mimeType,
		FileName: filepath.Base(path),
	}, nil
}

func writeResult(outputFile, content string) error {
	if outputFile == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(content), 0644); err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	fmt.Printf("Saved %s\n", outputFile)
	return nil
}
