//go:build !no_jsparser

package js

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"

	"github.com/krau/skraper/pkg/fetch"
)

func jsConsole(logger *log.Logger) map[string]any {
	logFn := func(level log.Level) func(args ...any) {
		return func(args ...any) {
			if len(args) == 0 {
				return
			}
			logger.Log(level, args[0], args[1:]...)
		}
	}
	return map[string]any{
		"log":   logFn(log.InfoLevel),
		"info":  logFn(log.InfoLevel),
		"debug": logFn(log.DebugLevel),
		"warn":  logFn(log.WarnLevel),
		"error": logFn(log.ErrorLevel),
	}
}

func headersArg(vm *goja.Runtime, v goja.Value) map[string]string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	headers := make(map[string]string)
	if err := vm.ExportTo(v, &headers); err != nil {
		return nil
	}
	return headers
}

/*
jsGhttp exposes the provider's fetch client to scripts:
  - get(url, headers?): the response body as a string
  - getJSON(url, headers?): { data } with the decoded body
  - post(url, body, headers?): the response body as a string

Failures are returned as { error, status? } instead of thrown.
*/
func jsGhttp(rt *runtime, client fetch.Client) *goja.Object {
	vm := rt.vm
	ghttp := vm.NewObject()
	failure := func(url string, err error) goja.Value {
		resp := map[string]any{
			"error": fmt.Sprintf("failed to fetch %s: %v", url, err),
		}
		var se *fetch.StatusError
		if errors.As(err, &se) {
			resp["status"] = se.StatusCode
		}
		return vm.ToValue(resp)
	}
	ghttp.Set("get", func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		body, err := client.Fetch(rt.ctx, fetch.Get(url, headersArg(vm, call.Argument(1))))
		if err != nil {
			return failure(url, err)
		}
		return vm.ToValue(string(body))
	})
	ghttp.Set("getJSON", func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		headers := map[string]string{"Accept": "application/json"}
		for k, v := range headersArg(vm, call.Argument(1)) {
			headers[k] = v
		}
		body, err := client.Fetch(rt.ctx, fetch.Get(url, headers))
		if err != nil {
			return failure(url, err)
		}
		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			return vm.ToValue(map[string]any{
				"error": fmt.Errorf("failed to unmarshal JSON: %w", err).Error(),
			})
		}
		return vm.ToValue(map[string]any{
			"data": data,
		})
	})
	ghttp.Set("post", func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		req := fetch.Request{
			URL:     url,
			Method:  "POST",
			Body:    []byte(call.Argument(1).String()),
			Headers: headersArg(vm, call.Argument(2)),
		}
		body, err := client.Fetch(rt.ctx, req)
		if err != nil {
			return failure(url, err)
		}
		return vm.ToValue(string(body))
	})
	return ghttp
}
