package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krau/skraper/cmd/download"
	"github.com/krau/skraper/cmd/providers"
	"github.com/krau/skraper/cmd/scrape"
	"github.com/krau/skraper/config"
)

var rootCmd = &cobra.Command{
	Use:           "skraper",
	Short:         "Scrape posts, pages and media from social networks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.RegisterFlags(rootCmd)
	rootCmd.AddCommand(versionCmd)
	scrape.Register(rootCmd)
	download.Register(rootCmd)
	providers.Register(rootCmd)
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
