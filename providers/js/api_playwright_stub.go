//go:build no_playwright && !no_jsparser

package js

import (
	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
)

func jsPlaywright(rt *runtime, _ *log.Logger) *goja.Object {
	vm := rt.vm
	obj := vm.NewObject()
	unsupported := vm.ToValue(map[string]any{
		"error": "playwright is not supported in this build",
	})
	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		return unsupported
	})
	return obj
}
