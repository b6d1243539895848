//go:build !no_jsparser && !no_playwright

package js

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
	"github.com/playwright-community/playwright-go"
)

const (
	playwrightDriverDir = "./playwright"
	defaultRenderWait   = 60 * time.Second
)

var waitStates = map[string]*playwright.WaitUntilState{
	"load":             playwright.WaitUntilStateLoad,
	"domcontentloaded": playwright.WaitUntilStateDomcontentloaded,
	"networkidle":      playwright.WaitUntilStateNetworkidle,
	"commit":           playwright.WaitUntilStateCommit,
}

// renderOptions is the optional second argument of playwright.get:
//
//	{ waitUntil: "load", timeout: 30000, userAgent: "...", selector: "#app" }
type renderOptions struct {
	waitUntil string
	timeout   time.Duration
	userAgent string
	selector  string
}

func renderOptionsArg(vm *goja.Runtime, v goja.Value) (renderOptions, error) {
	opts := renderOptions{waitUntil: "networkidle", timeout: defaultRenderWait}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return opts, nil
	}
	var raw map[string]any
	if err := vm.ExportTo(v, &raw); err != nil {
		return opts, fmt.Errorf("options must be an object: %w", err)
	}
	if s, ok := raw["waitUntil"].(string); ok && s != "" {
		if _, known := waitStates[s]; !known {
			return opts, fmt.Errorf("unknown waitUntil %q", s)
		}
		opts.waitUntil = s
	}
	switch ms := raw["timeout"].(type) {
	case int64:
		opts.timeout = time.Duration(ms) * time.Millisecond
	case float64:
		opts.timeout = time.Duration(ms * float64(time.Millisecond))
	}
	if opts.timeout <= 0 {
		opts.timeout = defaultRenderWait
	}
	opts.userAgent, _ = raw["userAgent"].(string)
	opts.selector, _ = raw["selector"].(string)
	return opts, nil
}

// pageRenderer drives a headless chromium. The driver and browser are
// installed once per plugin, a browser is started for every render.
type pageRenderer struct {
	driverDir string
	logger    *slog.Logger

	installOnce sync.Once
	installErr  error
}

func (r *pageRenderer) install() error {
	r.installOnce.Do(func() {
		r.installErr = playwright.Install(&playwright.RunOptions{
			Browsers:        []string{"chromium"},
			DriverDirectory: r.driverDir,
			Logger:          r.logger,
		})
		if r.installErr != nil {
			r.installErr = fmt.Errorf("failed to install playwright: %w", r.installErr)
		}
	})
	return r.installErr
}

func (r *pageRenderer) render(url string, opts renderOptions) (string, error) {
	if err := r.install(); err != nil {
		return "", err
	}
	pw, err := playwright.Run(&playwright.RunOptions{DriverDirectory: r.driverDir, Logger: r.logger})
	if err != nil {
		return "", fmt.Errorf("failed to start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	var pageOpts playwright.BrowserNewPageOptions
	if opts.userAgent != "" {
		pageOpts.UserAgent = playwright.String(opts.userAgent)
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	ms := playwright.Float(float64(opts.timeout.Milliseconds()))
	resp, err := page.Goto(url, playwright.PageGotoOptions{WaitUntil: waitStates[opts.waitUntil], Timeout: ms})
	if err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if resp != nil && resp.Status() >= 400 {
		return "", fmt.Errorf("bad status code: %d", resp.Status())
	}
	if opts.selector != "" {
		if _, err := page.WaitForSelector(opts.selector, playwright.PageWaitForSelectorOptions{Timeout: ms}); err != nil {
			return "", fmt.Errorf("selector %q never appeared: %w", opts.selector, err)
		}
	}
	return page.Content()
}

/*
jsPlaywright exposes get(url, options?) which renders url in headless
chromium and returns the final HTML. Like ghttp, failures come back as
{ error } instead of being thrown.
*/
func jsPlaywright(rt *runtime, logger *log.Logger) *goja.Object {
	vm := rt.vm
	renderer := &pageRenderer{driverDir: playwrightDriverDir, logger: slog.New(logger)}
	obj := vm.NewObject()
	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		opts, err := renderOptionsArg(vm, call.Argument(1))
		if err == nil {
			err = rt.ctx.Err()
		}
		var html string
		if err == nil {
			html, err = renderer.render(url, opts)
		}
		if err != nil {
			return vm.ToValue(map[string]any{"error": err.Error()})
		}
		logger.Debug("rendered page", "url", url, "size", len(html))
		return vm.ToValue(html)
	})
	return obj
}
