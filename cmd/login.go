package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/capscribe/capscribe/internal/profile"
)

// NewLoginCommand creates the 'login' command
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "login",
		Short:         "Store the Capscribe service API key",
		Long:          `Store the API key used by the transcribe and guide commands. The key is read from a hidden prompt and written to the profile file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, err := profile.LoadDefault()
			if err != nil {
				return err
			}

			key, err := readAPIKey(cmd)
			if err != nil {
				return err
			}

			if err := pm.SetAPIKey(key); err != nil {
				return err
			}
			if err := pm.Save(); err != nil {
				return err
			}

			fmt.Printf("API key saved to %s\n", pm.Path())
			return nil
		},
	}
}

// readAPIKey prompts for the key without echoing when stdin is a
// terminal, and falls back to a plain line read when it is not.
func readAPIKey(cmd *cobra.Command) (string, error) {
	fmt.Print("API key: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		key, err := term.ReadPassword(int(f.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(key), nil
	}

	var key string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &key); err != nil {
		return "", err
	}
	return strings.TrimSpace(key), nil
}
