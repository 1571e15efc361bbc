package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/capscribe/capscribe/config"
	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/capture/proc"
)

// NewRecordCommand creates the 'record' command
func NewRecordCommand() *cobra.Command {
	var (
		sourceName string
		includeMic bool
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:           "record",
		Short:         "Record the screen, camera or audio to a file",
		Long:          `Start a recording session with the selected source and write the finished recording to a file. Recording runs until you press Enter or Ctrl+C.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Record the screen with microphone audio
  capscribe record --source screen --mic

  # Record the camera into a specific directory
  capscribe record --source camera --output ./recordings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := capture.ParseSource(sourceName)
			if err != nil {
				return err
			}

			provider := proc.NewProvider(config.GetCaptureHelper())
			if !provider.Supported() {
				return errors.Errorf("capture helper %q not found in PATH", config.GetCaptureHelper())
			}

			ctrl := capture.NewController(provider)
			defer ctrl.Close()

			ctrl.SetSource(source, includeMic)
			if err := ctrl.Start(context.Background()); err != nil {
				if cerr, ok := capture.AsError(err); ok {
					return errors.New(cerr.Message())
				}
				return err
			}

			fmt.Printf("Recording %s... press Enter or Ctrl+C to stop\n", source)
			waitForStop(cmd)

			if err := ctrl.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: finalization error, recording may be truncated: %v\n", err)
			}

			artifact, ok := ctrl.Artifact()
			if !ok {
				return errors.New("recording produced no artifact")
			}
			if artifact.Empty() {
				return errors.New("recording is empty, nothing to write")
			}

			outPath := filepath.Join(outputDir, artifact.FileName)
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return errors.Wrap(err, "failed to create output directory")
			}
			if err := os.WriteFile(outPath, artifact.Bytes, 0644); err != nil {
				return errors.Wrap(err, "failed to write recording")
			}

			fmt.Printf("Saved %s (%d bytes, %ds)\n", outPath, len(artifact.Bytes), ctrl.ElapsedSeconds())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&sourceName, "source", "s", "screen", "Capture source (screen, camera, audio)")
	flags.BoolVarP(&includeMic, "mic", "m", false, "Include microphone audio")
	flags.StringVarP(&outputDir, "output", "o", ".", "Directory to write the recording into")

	return cmd
}

// waitForStop blocks until the user presses Enter or sends SIGINT/SIGTERM.
func waitForStop(cmd *cobra.Command) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	enter := make(chan struct{})
	go func() {
		reader := bufio.NewReader(cmd.InOrStdin())
		reader.ReadString('\n')
		close(enter)
	}()

	select {
	case <-sigChan:
	case <-enter:
	}
}
