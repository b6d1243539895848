package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/krau/skraper/config"
	"github.com/krau/skraper/providers/js"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Print the version number of skraper",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("skraper version: %s %s/%s\nBuildTime: %s, Commit: %s\n", config.Version, runtime.GOOS, runtime.GOARCH, config.BuildTime, config.GitCommit)
		fmt.Printf("Plugin API: %s (minimum %s)\n", js.LatestProviderVersion, js.MinimumProviderVersion)
	},
}
