//go:build no_bubbletea

package download

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/krau/skraper/common/utils/dlutil"
	"github.com/krau/skraper/core"
)

// Progress logs start and completion when built without bubbletea.
type Progress struct{}

func NewProgress() *Progress {
	return &Progress{}
}

func (p *Progress) OnStart(ctx context.Context, info core.DownloadInfo) {
	log.FromContext(ctx).Info("Downloading", "path", info.Path, "size", dlutil.FormatSize(info.Total))
}

func (p *Progress) OnProgress(ctx context.Context, info core.DownloadInfo, downloaded int64) {}

func (p *Progress) OnDone(ctx context.Context, info core.DownloadInfo, err error) {}
