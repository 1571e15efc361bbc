package cmd

import (
	"github.com/spf13/cobra"

	"github.com/capscribe/capscribe/internal/guide"
	"github.com/capscribe/capscribe/internal/profile"
	"github.com/capscribe/capscribe/internal/transcribe"
)

// NewGuideCommand creates the 'guide' command
func NewGuideCommand() *cobra.Command {
	var (
		formatName   string
		description  string
		instructions string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:           "guide <recording>",
		Short:         "Generate a written guide from a recording",
		Long:          `Transcribe a recording and generate a markdown document from it. The recording itself is sent along with the transcript so the service can describe on-screen actions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Generate a step-by-step guide
  capscribe guide screen-recording.webm

  # Generate an article with extra context
  capscribe guide screen-recording.webm --format article \
    --description "Onboarding flow walkthrough" -o onboarding.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := guide.ParseFormat(formatName)
			if err != nil {
				return err
			}

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

			transcript, err := transcribe.NewClient(pm.TranscribeEndpoint(), apiKey).Transcribe(cmd.Context(), artifact)
			if err != nil {
				return err
			}

			markdown, err := guide.NewClient(pm.GuideEndpoint(), apiKey).Generate(cmd.Context(), guide.PromptInput{
				Transcript:       transcript,
				VideoDescription: description,
				UserInstructions: instructions,
				Format:           format,
			}, artifact)
			if err != nil {
				return err
			}

			return writeResult(outputFile, markdown)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&formatName, "format", "f", string(guide.FormatGuide), "Document format (guide, article)")
	flags.StringVarP(&description, "description", "d", "", "Short description of what the recording shows")
	flags.StringVarP(&instructions, "instructions", "i", "", "Extra instructions for the generator")
	flags.StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")

	return cmd
}
