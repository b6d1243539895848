package scrape

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/krau/skraper/bootstrap"
	"github.com/krau/skraper/config"
	"github.com/krau/skraper/core"
	"github.com/krau/skraper/output"
	"github.com/krau/skraper/pkg/provider"
)

var postsCmd = &cobra.Command{
	Use:   "posts <provider> <path>",
	Short: "Scrape the latest posts of a page",
	Example: `  skraper posts reddit /r/golang -n 10 -t json
  skraper posts twitter /golang -m -o downloads`,
	Args: cobra.ExactArgs(2),
	RunE: Posts,
}

var pageCmd = &cobra.Command{
	Use:     "page <provider> <path>",
	Short:   "Scrape the profile of a page",
	Example: `  skraper page youtube /@RickAstleyYT -t yaml -o -`,
	Args:    cobra.ExactArgs(2),
	RunE:    Page,
}

func Register(root *cobra.Command) {
	postsCmd.Flags().IntP("limit", "n", provider.DefaultPostsLimit, "maximum number of posts")
	postsCmd.Flags().BoolP("media-only", "m", false, "download the media of the posts instead of writing them")
	postsCmd.Flags().Int("parallel-downloads", 0, "concurrent media downloads, default is download.parallel")
	for _, c := range []*cobra.Command{postsCmd, pageCmd} {
		c.Flags().StringP("output", "o", "", "output directory, or - for stdout. default is download.dir")
		c.Flags().StringP("type", "t", string(output.FormatLog), "output type (log, json, yaml)")
		root.AddCommand(c)
	}
}

type options struct {
	output string
	format output.Format
}

func parseOptions(cmd *cobra.Command) (options, error) {
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return options{}, err
	}
	typ, err := cmd.Flags().GetString("type")
	if err != nil {
		return options{}, err
	}
	format, err := output.ParseFormat(typ)
	if err != nil {
		return options{}, err
	}
	return options{output: out, format: format}, nil
}

func Posts(cmd *cobra.Command, args []string) error {
	opts, err := parseOptions(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	mediaOnly, err := cmd.Flags().GetBool("media-only")
	if err != nil {
		return err
	}
	parallel, err := cmd.Flags().GetInt("parallel-downloads")
	if err != nil {
		return err
	}

	ctx, app, err := bootstrap.Init(cmd.Context(), config.GetConfigFile(cmd))
	if err != nil {
		return err
	}
	defer app.Close()
	if opts.output == "" {
		opts.output = app.Config.Download.Dir
	}

	p, err := app.Registry.Get(args[0])
	if err != nil {
		return err
	}
	logger := log.FromContext(ctx).WithPrefix(p.Name())
	logger.Info("Fetching posts", "path", args[1], "limit", limit)
	posts, err := p.GetPosts(ctx, args[1], limit)
	if err != nil {
		return fmt.Errorf("failed to get posts from %s: %w", p.Name(), err)
	}
	logger.Info("Fetched posts", "count", len(posts))

	if !mediaOnly {
		return write(ctx, opts, p.Name(), args[1], posts)
	}

	if parallel < 1 {
		parallel = app.Config.Download.Parallel
	}
	destDir := core.PostsDir(opts.output, p.Name(), args[1])
	results := app.Downloader(ctx).DownloadPosts(ctx, posts, destDir, parallel)
	return summarize(logger, results)
}

func Page(cmd *cobra.Command, args []string) error {
	opts, err := parseOptions(cmd)
	if err != nil {
		return err
	}
	ctx, app, err := bootstrap.Init(cmd.Context(), config.GetConfigFile(cmd))
	if err != nil {
		return err
	}
	defer app.Close()
	if opts.output == "" {
		opts.output = app.Config.Download.Dir
	}

	p, err := app.Registry.Get(args[0])
	if err != nil {
		return err
	}
	info, err := p.GetPageInfo(ctx, args[1])
	if err != nil {
		return fmt.Errorf("failed to get page info from %s: %w", p.Name(), err)
	}
	return write(ctx, opts, p.Name(), args[1], info)
}

func write(ctx context.Context, opts options, providerName, path string, v any) error {
	if opts.output == "-" {
		return output.Write(os.Stdout, opts.format, v)
	}
	target := output.TargetFile(opts.output, providerName, path, opts.format, time.Now())
	if err := writeFile(target, opts.format, v); err != nil {
		return err
	}
	log.FromContext(ctx).Info("Saved", "file", target)
	return nil
}

func writeFile(target string, format output.Format, v any) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if err := output.Write(f, format, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func summarize(logger *log.Logger, results []core.MediaResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info("Download finished", "total", len(results), "failed", failed)
	if failed > 0 && failed == len(results) {
		return fmt.Errorf("all %d downloads failed", failed)
	}
	return nil
}
