package download

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/krau/skraper/bootstrap"
	"github.com/krau/skraper/config"
	"github.com/krau/skraper/core"
	"github.com/krau/skraper/output"
	"github.com/krau/skraper/pkg/media"
)

var downloadCmd = &cobra.Command{
	Use:     "download <url>",
	Aliases: []string{"dl"},
	Short:   "Resolve a media URL and download it",
	Example: `  skraper download https://www.reddit.com/r/golang/comments/abc/post -d videos
  skraper download https://youtu.be/dQw4w9WgXcQ --kind video -f rickroll`,
	Args: cobra.ExactArgs(1),
	RunE: Download,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a media URL to its direct link without downloading",
	Args:  cobra.ExactArgs(1),
	RunE:  Resolve,
}

func Register(root *cobra.Command) {
	downloadCmd.Flags().StringP("dir", "d", "", "destination directory, default is download.dir")
	downloadCmd.Flags().StringP("filename", "f", "", "file name without extension, default is taken from the URL")
	downloadCmd.Flags().Bool("no-progress", false, "disable progress bar")
	for _, c := range []*cobra.Command{downloadCmd, resolveCmd} {
		c.Flags().String("kind", "unknown", "media kind (image, video, audio, unknown)")
	}
	resolveCmd.Flags().StringP("type", "t", string(output.FormatLog), "output type (log, json, yaml)")
	root.AddCommand(downloadCmd, resolveCmd)
}

func parseMedia(cmd *cobra.Command, rawURL string) (media.Media, error) {
	kindStr, err := cmd.Flags().GetString("kind")
	if err != nil {
		return media.Media{}, err
	}
	kind, err := media.ParseKind(kindStr)
	if err != nil {
		return media.Media{}, err
	}
	m := media.Media{Kind: kind, URL: rawURL}
	if err := m.Validate(); err != nil {
		return media.Media{}, err
	}
	return m, nil
}

func Download(cmd *cobra.Command, args []string) error {
	m, err := parseMedia(cmd, args[0])
	if err != nil {
		return err
	}
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	filename, err := cmd.Flags().GetString("filename")
	if err != nil {
		return err
	}
	noProgress, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return err
	}

	ctx, app, err := bootstrap.Init(cmd.Context(), config.GetConfigFile(cmd))
	if err != nil {
		return err
	}
	defer app.Close()
	if dir == "" {
		dir = app.Config.Download.Dir
	}

	var opts []core.DownloaderOption
	if !noProgress {
		opts = append(opts, core.WithProgress(NewProgress()))
	}
	path, err := app.Downloader(ctx, opts...).Download(ctx, m, dir, filename)
	if err != nil {
		return err
	}
	log.FromContext(ctx).Info("Downloaded", "path", path)
	return nil
}

func Resolve(cmd *cobra.Command, args []string) error {
	m, err := parseMedia(cmd, args[0])
	if err != nil {
		return err
	}
	typ, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(typ)
	if err != nil {
		return err
	}
	ctx, app, err := bootstrap.Init(cmd.Context(), config.GetConfigFile(cmd))
	if err != nil {
		return err
	}
	defer app.Close()

	resolved, hops := app.Resolver.ResolveHops(ctx, m)
	if err := ctx.Err(); err != nil {
		return err
	}
	log.FromContext(ctx).Debug("Resolved", "url", m.URL, "hops", hops)
	return output.Write(os.Stdout, format, resolved)
}
