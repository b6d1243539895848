//go:build !no_jsparser && !no_playwright

package js

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
)

func TestRenderOptionsArg(t *testing.T) {
	vm := goja.New()
	tests := []struct {
		name    string
		script  string
		want    renderOptions
		wantErr bool
	}{
		{"undefined", `undefined`, renderOptions{waitUntil: "networkidle", timeout: defaultRenderWait}, false},
		{"all fields", `({waitUntil: "load", timeout: 1500, userAgent: "ua", selector: "#app"})`,
			renderOptions{waitUntil: "load", timeout: 1500 * time.Millisecond, userAgent: "ua", selector: "#app"}, false},
		{"fractional timeout", `({timeout: 2.5})`, renderOptions{waitUntil: "networkidle", timeout: 2500 * time.Microsecond}, false},
		{"non-positive timeout", `({timeout: -1})`, renderOptions{waitUntil: "networkidle", timeout: defaultRenderWait}, false},
		{"unknown wait state", `({waitUntil: "idle"})`, renderOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := vm.RunString(tt.script)
			if err != nil {
				t.Fatal(err)
			}
			got, err := renderOptionsArg(vm, v)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPlaywrightGetReportsErrors(t *testing.T) {
	vm := goja.New()
	rt := &runtime{vm: vm, ctx: context.Background()}
	vm.Set("playwright", jsPlaywright(rt, log.New(io.Discard)))

	v, err := vm.RunString(`playwright.get("https://example.com", {waitUntil: "whenever"}).error`)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := v.Export().(string); !ok || s == "" {
		t.Fatalf("expected an error string, got %v", v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt.ctx = ctx
	v, err = vm.RunString(`playwright.get("https://example.com").error`)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := v.Export().(string); s != context.Canceled.Error() {
		t.Fatalf("expected %q, got %v", context.Canceled.Error(), v)
	}
}
