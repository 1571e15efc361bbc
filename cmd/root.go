package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capscribe/capscribe/internal/util"
	"github.com/capscribe/capscribe/internal/version"
)

var (
	verboseFlag bool

	rootCmd = &cobra.Command{
		Use:   "capscribe",
		Short: "Capscribe CLI Tool",
		Long:  `Capscribe records your screen, camera or audio and turns the recording into written documentation. It provides commands to capture media, transcribe it and generate step-by-step guides from it.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.InitLogger(verboseFlag)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flag("version").Changed {
				info := version.ClientInfo()
				fmt.Printf("Capscribe version %s, build %s\n", info["Version"], info["GitCommit"])
				return nil
			}
			return cmd.Help()
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information and exit")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable verbose logging")

	rootCmd.AddCommand(NewRecordCommand())
	rootCmd.AddCommand(NewSourcesCommand())
	rootCmd.AddCommand(NewTranscribeCommand())
	rootCmd.AddCommand(NewGuideCommand())
	rootCmd.AddCommand(NewStudioCommand())
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewVersionCommand())
}
