//go:build !no_bubbletea

package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/krau/skraper/common/utils/dlutil"
	"github.com/krau/skraper/core"
)

var (
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

const refreshInterval = 100 * time.Millisecond

type progressMsg int64

type progressErrMsg struct{ err error }

type progressDoneMsg struct{}

type downloadModel struct {
	progress   progress.Model
	fileName   string
	total      int64
	downloaded int64
	started    time.Time
	err        error
	done       bool
}

func newDownloadModel(fileName string, total int64) downloadModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)
	return downloadModel{
		progress: p,
		fileName: fileName,
		total:    total,
		started:  time.Now(),
	}
}

func (m downloadModel) Init() tea.Cmd {
	return nil
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-10, 80)
		return m, nil

	case progressMsg:
		m.downloaded = int64(msg)
		if m.total <= 0 {
			return m, nil
		}
		return m, m.progress.SetPercent(float64(m.downloaded) / float64(m.total))

	case progressErrMsg:
		m.err = msg.err
		return m, tea.Quit

	case progressDoneMsg:
		m.done = true
		m.progress.SetPercent(1.0)
		return m, tea.Quit

	case progress.FrameMsg:
		if m.done {
			return m, nil
		}
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m downloadModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n  ❌ Error: %s\n\n", m.err.Error())
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  📁 %s\n", m.fileName))
	if m.total > 0 {
		sb.WriteString(fmt.Sprintf("  📊 %s / %s  %s\n\n",
			humanize.Bytes(uint64(m.downloaded)),
			humanize.Bytes(uint64(m.total)),
			dlutil.FormatSpeed(dlutil.GetSpeed(m.downloaded, m.started)),
		))
		sb.WriteString("  ")
		sb.WriteString(m.progress.View())
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("  📊 %s  %s\n\n",
			humanize.Bytes(uint64(m.downloaded)),
			dlutil.FormatSpeed(dlutil.GetSpeed(m.downloaded, m.started)),
		))
	}

	if m.done {
		sb.WriteString("  √ Download complete!\n\n")
	} else {
		sb.WriteString(helpStyle.Render("  Press Ctrl+C to cancel"))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// Progress renders one bubbletea program per download.
type Progress struct {
	mu       sync.Mutex
	program  *tea.Program
	lastSent time.Time
}

func NewProgress() *Progress {
	return &Progress{}
}

func (p *Progress) OnStart(ctx context.Context, info core.DownloadInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.program = tea.NewProgram(
		newDownloadModel(filepath.Base(info.Path), info.Total),
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
		tea.WithInput(nil),
	)
	p.lastSent = time.Time{}
	go p.program.Run()
}

func (p *Progress) OnProgress(ctx context.Context, info core.DownloadInfo, downloaded int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.program == nil || time.Since(p.lastSent) < refreshInterval {
		return
	}
	p.lastSent = time.Now()
	p.program.Send(progressMsg(downloaded))
}

func (p *Progress) OnDone(ctx context.Context, info core.DownloadInfo, err error) {
	p.mu.Lock()
	program := p.program
	p.program = nil
	p.mu.Unlock()
	if program == nil {
		return
	}
	if err != nil {
		program.Send(progressErrMsg{err: err})
	} else {
		program.Send(progressDoneMsg{})
	}
	program.Wait()
}
