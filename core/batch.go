package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/krau/skraper/common/utils/fsutil"
	"github.com/krau/skraper/pkg/media"
)

const DefaultParallel = 4

type MediaResult struct {
	PostID string
	Media  media.Media
	Path   string
	Err    error
}

// PostsDir is <output>/<provider>/<path>, with path made filesystem safe.
func PostsDir(output, providerName, path string) string {
	return filepath.Join(output, fsutil.NormalizePathname(providerName), fsutil.NormalizePath(path))
}

// MediaFilename names the n-th (zero based) of count media of a post.
func MediaFilename(postID string, n, count int) string {
	if count == 1 {
		return postID
	}
	return fmt.Sprintf("%s_%d", postID, n+1)
}

// DownloadPosts downloads every media of posts into destDir, at most
// parallel at a time. A failed item does not stop the others; results keep
// the order of the input.
func (d *Downloader) DownloadPosts(ctx context.Context, posts []media.Post, destDir string, parallel int) []MediaResult {
	logger := log.FromContext(ctx).WithPrefix("batch")
	if parallel < 1 {
		parallel = DefaultParallel
	}
	var results []MediaResult
	for _, post := range posts {
		for _, m := range post.Media {
			results = append(results, MediaResult{PostID: post.ID, Media: m})
		}
	}

	var eg errgroup.Group
	eg.SetLimit(parallel)
	idx := 0
	for _, post := range posts {
		for n := range post.Media {
			res := &results[idx]
			idx++
			filename := MediaFilename(post.ID, n, len(post.Media))
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					res.Err = err
					return nil
				}
				res.Path, res.Err = d.Download(ctx, res.Media, destDir, filename)
				if res.Err != nil {
					logger.Error("Cannot download media", "url", res.Media.URL, "error", res.Err)
				} else {
					logger.Info("Downloaded", "path", res.Path)
				}
				return nil
			})
		}
	}
	eg.Wait()
	return results
}
