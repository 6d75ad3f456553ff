package internal

import (
	"context"

	"github.com/spf13/cobra"
)

var mvnDir string

var mvnCmd = &cobra.Command{
	Use:   "mvn [flags] -- <goal>...",
	Short: "Run Maven against a project",
	Long: `Mvn installs the configured Maven distribution on first use and runs it with
the given goals and options against the project directory.`,
	Example: `  dsdn mvn package
  dsdn mvn -C ./app -- -DskipTests clean install`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMvn,
}

func init() {
	mvnCmd.Flags().StringVarP(&mvnDir, "dir", "C", ".", "project directory")
	rootCmd.AddCommand(mvnCmd)
}

func runMvn(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		return a.maven().Run(ctx, mvnDir, args...)
	})
}
