package internal

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/0xdeki/dsdn/x/jar"
)

var jarBuiltin bool

var jarCmd = &cobra.Command{
	Use:   "jar <dir> <output>",
	Short: "Package a directory into a jar",
	Long:  `Jar archives the whole content of dir into output, replacing any existing file.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runJar,
}

func init() {
	jarCmd.Flags().BoolVar(&jarBuiltin, "builtin", false, "write the archive without the JDK jar tool")
	rootCmd.AddCommand(jarCmd)
}

func runJar(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		return packageDir(ctx, a, args[0], args[1], jarBuiltin)
	})
}

func packageDir(ctx context.Context, a *app, dir, output string, builtin bool) error {
	if builtin {
		return jar.WriteZip(dir, output)
	}
	return a.packager().Create(ctx, dir, output)
}
