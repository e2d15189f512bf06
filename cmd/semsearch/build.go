package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var forceBuild bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed the corpus and persist the cache",
	Long: `Embeds every non-empty line of the corpus source file and writes the cache.
An existing cache is kept unless --force is given.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&forceBuild, "force", false, "rebuild even when a cache exists")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, globalConfig, globalLogger)
	if err != nil {
		return err
	}
	defer a.close()

	build := a.corpus.Ensure
	if forceBuild {
		build = a.corpus.Build
	}

	c, err := build(ctx)
	if err != nil {
		return fmt.Errorf("build corpus: %w", err)
	}

	globalLogger.Info("Corpus ready",
		zap.Int("entries", c.Len()),
		zap.Int("dimensions", c.Dimension()),
		zap.Bool("forced", forceBuild),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "corpus ready: %d entries, %d dimensions\n", c.Len(), c.Dimension())
	return nil
}
