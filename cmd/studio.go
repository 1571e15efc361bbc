package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/capscribe/capscribe/config"
	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/capture/proc"
	"github.com/capscribe/capscribe/internal/server"
)

// NewStudioCommand creates the 'studio' command
func NewStudioCommand() *cobra.Command {
	var (
		port   int
		noOpen bool
	)

	cmd := &cobra.Command{
		Use:           "studio",
		Short:         "Start the local recording studio",
		Long:          `Start the local studio server and open it in the browser. The studio provides controls for picking a source, recording with a live preview and downloading the finished recording.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Start the studio and open the browser
  capscribe studio

  # Start on a specific port without opening the browser
  capscribe studio --port 9000 --no-open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := proc.NewProvider(config.GetCaptureHelper())
			ctrl := capture.NewController(provider)
			srv := server.NewStudioServer(port, ctrl)

			errChan := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					errChan <- err
				}
			}()

			url := fmt.Sprintf("http://localhost:%d", port)
			select {
			case err := <-errChan:
				srv.Stop()
				return errors.Wrapf(err, "failed to start studio server on port %d", port)
			case <-time.After(300 * time.Millisecond):
			}

			fmt.Printf("Capscribe Studio listening on %s\n", url)
			if !noOpen {
				if err := browser.OpenURL(url); err != nil {
					fmt.Println("Failed to open browser automatically, please visit the link above manually")
				}
			}
			fmt.Println("Press Ctrl+C to stop...")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigChan:
			case err := <-errChan:
				srv.Stop()
				return err
			}

			fmt.Println("Shutting down studio...")
			return srv.Stop()
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&port, "port", "p", config.GetStudioPort(), "Port for the studio server")
	flags.BoolVar(&noOpen, "no-open", false, "Do not open the browser")

	return cmd
}
