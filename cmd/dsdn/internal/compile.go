package internal

import (
	"context"

	"github.com/spf13/cobra"
)

var compileLibs []string

var compileCmd = &cobra.Command{
	Use:   "compile <source dir> <output dir>",
	Short: "Compile a tree of Java sources",
	Long: `Compile indexes every .java file under the source directory and compiles them
with javac into the output directory, which is emptied first.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringArrayVarP(&compileLibs, "lib", "l", nil, "add a library to the classpath (repeatable, order kept)")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		return a.compiler().Compile(ctx, args[0], args[1], compileLibs...)
	})
}
