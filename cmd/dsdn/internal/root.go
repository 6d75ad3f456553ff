package internal

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/0xdeki/dsdn/internal/diag"
)

var (
	configFile  string
	verbose     bool
	timeout     time.Duration
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "dsdn",
	Short: "dsdn builds Java projects with javac, jar and Maven",
	Long: `dsdn drives the JDK tools and a self-installed Maven distribution to build
Java projects, optionally cloning them from a git remote first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default $DSDN_HOME/dsdn.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	flags.DurationVar(&timeout, "timeout", 0, "kill any tool running longer than this (0 waits forever)")
	flags.StringVar(&metricsFile, "metrics-file", "", "write run metrics to this file in Prometheus text format")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	log.Error(err)
	os.Exit(exitStatus(err))
}

// exitStatus maps err to the process exit status: a failing tool's own
// status when there is one, 1 otherwise.
func exitStatus(err error) int {
	if code := diag.ExitCode(err); code > 0 {
		return code
	}
	return 1
}
