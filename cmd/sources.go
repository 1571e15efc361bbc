package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capscribe/capscribe/config"
	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/capture/proc"
	"github.com/capscribe/capscribe/internal/util"
)

// NewSourcesCommand creates the 'sources' command
func NewSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "sources",
		Short:         "List capture sources and their availability",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := proc.NewProvider(config.GetCaptureHelper())
			available := provider.Supported()

			status := color.GreenString("available")
			if !available {
				status = color.RedString("unavailable (helper %q not in PATH)", config.GetCaptureHelper())
			}

			rows := []map[string]interface{}{
				{"source": string(capture.SourceScreen), "media": "video + optional mic", "status": status},
				{"source": string(capture.SourceCamera), "media": "video + optional mic", "status": status},
				{"source": string(capture.SourceAudio), "media": "audio only", "status": status},
			}
			util.RenderTable([]util.TableColumn{
				{Header: "SOURCE", Key: "source"},
				{Header: "MEDIA", Key: "media"},
				{Header: "STATUS", Key: "status"},
			}, rows)
			return nil
		},
	}
}
