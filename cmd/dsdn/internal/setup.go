package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var setupStatus bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install the Maven distribution",
	Long: `Setup downloads and unpacks the configured Maven version under the dsdn home
unless it is already there. With --status it only reports what is installed.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVar(&setupStatus, "status", false, "report installed versions without installing")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		inst := a.installer()
		out := cmd.OutOrStdout()
		if setupStatus {
			versions, err := inst.Versions()
			if err != nil {
				return err
			}
			for _, v := range versions {
				mark := " "
				if v == inst.Dist().Version {
					mark = "*"
				}
				fmt.Fprintf(out, "%s maven %s\n", mark, v)
			}
			if !inst.Installed() {
				fmt.Fprintf(out, "maven %s is not installed, run 'dsdn setup'\n", inst.Dist().Version)
			}
			return nil
		}
		if err := inst.Ensure(ctx); err != nil {
			return fmt.Errorf("install maven %s: %w", inst.Dist().Version, err)
		}
		fmt.Fprintf(out, "maven %s: %s\n", inst.Dist().Version, inst.Home())
		return nil
	})
}
