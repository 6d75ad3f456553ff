package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	buildOutput  string
	buildSrc     string
	buildGoals   []string
	buildLibs    []string
	buildBuiltin bool
)

var buildCmd = &cobra.Command{
	Use:   "build <dir | git url>",
	Short: "Build a Java project",
	Long: `Build builds a local project directory, or a clean clone of a git remote made
under $DSDN_HOME/work. Projects with a pom.xml are built with Maven; any other
project has its sources compiled with javac and packaged into a jar.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	flags := buildCmd.Flags()
	flags.StringVarP(&buildOutput, "output", "o", "", "jar to write (default <dir>/build/<name>.jar)")
	flags.StringVar(&buildSrc, "src", "src", "source directory, relative to the project")
	flags.StringSliceVarP(&buildGoals, "goal", "g", []string{"package"}, "Maven goals for pom.xml projects")
	flags.StringArrayVarP(&buildLibs, "lib", "l", nil, "add a library to the classpath (repeatable, order kept)")
	flags.BoolVar(&buildBuiltin, "builtin", false, "write the jar without the JDK jar tool")
	flags.StringVar(&gitRef, "ref", "", "fetch only this branch, tag or commit of a remote")
	flags.StringVarP(&gitUsername, "username", "u", "", "authenticate to the remote as this user")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		dir := args[0]
		name := repoName(dir)
		if abs, err := filepath.Abs(dir); err == nil && !isRemote(dir) {
			name = repoName(abs)
		}
		if isRemote(dir) {
			dir = filepath.Join(a.home, "work", name)
			log.Infof("Cloning %s into %s", args[0], dir)
			if err := cleanCheckout(ctx, a.git(), args[0], gitRef, dir); err != nil {
				return err
			}
		}

		if _, err := os.Stat(filepath.Join(dir, "pom.xml")); err == nil {
			log.Infof("Building %s with Maven", dir)
			return a.maven().Run(ctx, dir, buildGoals...)
		}

		classes := filepath.Join(dir, "build", "classes")
		if err := a.compiler().Compile(ctx, filepath.Join(dir, buildSrc), classes, buildLibs...); err != nil {
			return fmt.Errorf("compile %s: %w", name, err)
		}
		output := buildOutput
		if output == "" {
			output = filepath.Join(dir, "build", name+".jar")
		}
		if err := packageDir(ctx, a, classes, output, buildBuiltin); err != nil {
			return fmt.Errorf("package %s: %w", name, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	})
}

// isRemote reports whether arg names a git remote rather than a directory.
func isRemote(arg string) bool {
	return strings.Contains(arg, "://") || strings.HasPrefix(arg, "git@")
}

// repoName returns the last path element of a directory or remote, without
// a ".git" suffix.
func repoName(arg string) string {
	arg = strings.TrimRight(arg, `/\`)
	if i := strings.LastIndexAny(arg, `/\:`); i >= 0 {
		arg = arg[i+1:]
	}
	arg = strings.TrimSuffix(arg, ".git")
	if arg == "" || arg == "." || arg == ".." {
		return "project"
	}
	return arg
}
