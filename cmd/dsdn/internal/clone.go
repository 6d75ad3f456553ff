package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xdeki/dsdn/internal/vcs"
)

// PasswordVar holds the password used with --username.
const PasswordVar = "DSDN_GIT_PASSWORD"

var (
	gitRef      string
	gitUsername string
)

var cloneCmd = &cobra.Command{
	Use:   "clone <url> <dir>",
	Short: "Clone a git repository into a clean directory",
	Long: `Clone deletes dir if it exists and clones url into it. With --ref only that
branch, tag or commit is fetched. With --username the password is read from
$` + PasswordVar + `.`,
	Args: cobra.ExactArgs(2),
	RunE: runClone,
}

var tagsCmd = &cobra.Command{
	Use:   "tags <url>",
	Short: "List the tags of a git repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runTags,
}

func init() {
	for _, cmd := range []*cobra.Command{cloneCmd, tagsCmd} {
		cmd.Flags().StringVarP(&gitUsername, "username", "u", "", "authenticate as this user")
	}
	cloneCmd.Flags().StringVar(&gitRef, "ref", "", "fetch only this branch, tag or commit")
	rootCmd.AddCommand(cloneCmd, tagsCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		return cleanCheckout(ctx, a.git(), args[0], gitRef, args[1])
	})
}

func runTags(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		tags, err := a.git().Tags(ctx, args[0], credentials())
		if err != nil {
			return err
		}
		for _, tag := range tags {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	})
}

// cleanCheckout replaces dir with a fresh checkout of url, at ref when set.
func cleanCheckout(ctx context.Context, git *vcs.Git, url, ref, dir string) error {
	if ref == "" {
		return git.CleanClone(ctx, url, dir, credentials())
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return git.Sync(ctx, url, ref, dir, credentials())
}

func credentials() *vcs.Credentials {
	if gitUsername == "" {
		return nil
	}
	return &vcs.Credentials{Username: gitUsername, Password: os.Getenv(PasswordVar)}
}
