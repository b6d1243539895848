//go:build !no_jsparser

package js

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
	"github.com/hashicorp/go-multierror"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

// runtime owns one goja VM. All calls into it go through reqCh and run on a
// single goroutine.
type runtime struct {
	vm    *goja.Runtime
	reqCh chan callReq
	// ctx of the call being executed, read by the helpers
	ctx context.Context
}

type callReq struct {
	ctx    context.Context
	fn     goja.Callable
	args   []any
	respCh chan callResp
}

type callResp struct {
	data []byte
	err  error
}

var errNullResult = errors.New("JS function returned null or undefined")

func newRuntime(vm *goja.Runtime) *runtime {
	r := &runtime{
		vm:    vm,
		reqCh: make(chan callReq, 10),
		ctx:   context.Background(),
	}
	go r.loop()
	return r
}

func (r *runtime) loop() {
	for req := range r.reqCh {
		req.respCh <- r.exec(req)
	}
}

func (r *runtime) exec(req callReq) callResp {
	if err := req.ctx.Err(); err != nil {
		return callResp{err: err}
	}
	r.ctx = req.ctx
	stop := context.AfterFunc(req.ctx, func() {
		r.vm.Interrupt(req.ctx.Err())
	})
	defer func() {
		stop()
		r.vm.ClearInterrupt()
		r.ctx = context.Background()
	}()

	args := make([]goja.Value, 0, len(req.args))
	for _, a := range req.args {
		args = append(args, r.vm.ToValue(a))
	}
	result, err := req.fn(goja.Undefined(), args...)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) && req.ctx.Err() != nil {
			return callResp{err: req.ctx.Err()}
		}
		return callResp{err: err}
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return callResp{err: errNullResult}
	}
	data, err := json.Marshal(result.Export())
	if err != nil {
		return callResp{err: fmt.Errorf("failed to marshal result to JSON: %w", err)}
	}
	return callResp{data: data}
}

// call runs fn on the VM goroutine and decodes its JSON-compatible result
// into out.
func (r *runtime) call(ctx context.Context, fn goja.Callable, out any, args ...any) error {
	respCh := make(chan callResp, 1)
	select {
	case r.reqCh <- callReq{ctx: ctx, fn: fn, args: args, respCh: respCh}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case resp := <-respCh:
		if resp.err != nil {
			return resp.err
		}
		if err := json.Unmarshal(resp.data, out); err != nil {
			return fmt.Errorf("failed to decode JS result: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type jsProvider struct {
	meta    PluginMeta
	baseURL string
	hosts   []string
	rt      *runtime

	resolveFn     goja.Callable
	getPostsFn    goja.Callable
	getPageInfoFn goja.Callable
}

var _ provider.Provider = (*jsProvider)(nil)

func (p *jsProvider) Name() string {
	return p.meta.Name
}

func (p *jsProvider) BaseURL() string {
	return p.baseURL
}

func (p *jsProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, p.hosts...)
}

func (p *jsProvider) Meta() PluginMeta {
	return p.meta
}

// toJS converts a Go model value into plain maps and slices through its
// JSON form, so scripts see the same field names as the JSON output.
func toJS(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *jsProvider) Resolve(ctx context.Context, m media.Media) media.Media {
	if p.resolveFn == nil {
		return m
	}
	logger := log.FromContext(ctx).WithPrefix("plugin/" + p.meta.Name)
	arg, err := toJS(m)
	if err != nil {
		return m
	}
	var next media.Media
	if err := p.rt.call(ctx, p.resolveFn, &next, arg); err != nil {
		if !errors.Is(err, errNullResult) {
			logger.Debug("resolve failed", "url", m.URL, "error", err)
		}
		return m
	}
	return next
}

func (p *jsProvider) GetPosts(ctx context.Context, path string, limit int) ([]media.Post, error) {
	if p.getPostsFn == nil {
		return nil, fmt.Errorf("%w: %s has no getPosts", provider.ErrNotSupported, p.meta.Name)
	}
	limit = provider.Limit(limit)
	var posts []media.Post
	if err := p.rt.call(ctx, p.getPostsFn, &posts, path, limit); err != nil {
		return nil, fmt.Errorf("plugin %s getPosts: %w", p.meta.Name, err)
	}
	for i, post := range posts {
		if err := post.Validate(); err != nil {
			return nil, fmt.Errorf("plugin %s returned invalid post %d: %w", p.meta.Name, i, err)
		}
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (p *jsProvider) GetPageInfo(ctx context.Context, path string) (*media.PageInfo, error) {
	if p.getPageInfoFn == nil {
		return nil, fmt.Errorf("%w: %s has no getPageInfo", provider.ErrNotSupported, p.meta.Name)
	}
	var info media.PageInfo
	if err := p.rt.call(ctx, p.getPageInfoFn, &info, path); err != nil {
		if errors.Is(err, errNullResult) {
			return nil, provider.ErrNotFound
		}
		return nil, fmt.Errorf("plugin %s getPageInfo: %w", p.meta.Name, err)
	}
	return &info, nil
}

func optionalFunc(obj *goja.Object, name string) (goja.Callable, error) {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("%s must be a function", name)
	}
	return fn, nil
}

func exportJSON(v goja.Value, out any) error {
	exported := v.Export()
	if exported == nil {
		return errNullResult
	}
	data, err := json.Marshal(exported)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func jsRegisterProvider(rt *runtime, registered *[]provider.Provider) func(call goja.FunctionCall) goja.Value {
	vm := rt.vm
	throw := func(format string, args ...any) {
		panic(vm.NewTypeError(append([]any{"registerProvider: " + format}, args...)...))
	}
	return func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			throw("expects an object { metadata, hosts, resolve, getPosts, getPageInfo }")
		}
		obj := arg.ToObject(vm)

		metaValue := obj.Get("metadata")
		if metaValue == nil || goja.IsUndefined(metaValue) {
			throw("provider must provide metadata")
		}
		var meta PluginMeta
		if err := exportJSON(metaValue, &meta); err != nil {
			throw("invalid metadata: %v", err)
		}
		if meta.Name == "" {
			throw("metadata.name is required")
		}
		if err := checkVersion(meta.Version); err != nil {
			throw("%v", err)
		}

		p := &jsProvider{meta: meta, rt: rt}
		if v := obj.Get("baseUrl"); v != nil && !goja.IsUndefined(v) {
			p.baseURL = v.String()
		}
		if v := obj.Get("hosts"); v != nil && !goja.IsUndefined(v) {
			if err := exportJSON(v, &p.hosts); err != nil {
				throw("hosts must be an array of strings: %v", err)
			}
		}
		if len(p.hosts) == 0 && p.baseURL != "" {
			if h := provider.Host(p.baseURL); h != "" {
				p.hosts = []string{h}
			}
		}
		if len(p.hosts) == 0 {
			throw("provider must provide hosts or baseUrl")
		}

		var err error
		if p.resolveFn, err = optionalFunc(obj, "resolve"); err != nil {
			throw("%v", err)
		}
		if p.getPostsFn, err = optionalFunc(obj, "getPosts"); err != nil {
			throw("%v", err)
		}
		if p.getPageInfoFn, err = optionalFunc(obj, "getPageInfo"); err != nil {
			throw("%v", err)
		}
		if p.resolveFn == nil && p.getPostsFn == nil && p.getPageInfoFn == nil {
			throw("provider must implement at least one of resolve, getPosts, getPageInfo")
		}

		*registered = append(*registered, p)
		return goja.Undefined()
	}
}

// LoadPlugin evaluates one script and returns the providers it registered.
func LoadPlugin(ctx context.Context, client fetch.Client, name, code string) ([]provider.Provider, error) {
	logger := log.FromContext(ctx).WithPrefix("plugin/" + name)
	vm := goja.New()
	rt := newRuntime(vm)
	var registered []provider.Provider

	vm.Set("registerProvider", jsRegisterProvider(rt, &registered))
	vm.Set("console", jsConsole(logger))
	vm.Set("ghttp", jsGhttp(rt, client))
	vm.Set("playwright", jsPlaywright(rt, logger))

	// top-level code runs on the loader's goroutine before any call is queued
	if _, err := vm.RunString(code); err != nil {
		close(rt.reqCh)
		return nil, fmt.Errorf("error loading plugin %s: %w", name, err)
	}
	if len(registered) == 0 {
		close(rt.reqCh)
		return nil, fmt.Errorf("plugin %s registered no provider", name)
	}
	return registered, nil
}

// LoadPlugins loads every .js file in dir. A broken script does not stop the
// others; their errors are returned together.
func LoadPlugins(ctx context.Context, client fetch.Client, dir string) ([]provider.Provider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	logger := log.FromContext(ctx)
	var (
		loaded []provider.Provider
		errs   *multierror.Error
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".js" {
			continue
		}
		code, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		ps, err := LoadPlugin(ctx, client, e.Name(), string(code))
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, p := range ps {
			logger.Debug("Loaded plugin provider", "file", e.Name(), "provider", p.Name())
		}
		loaded = append(loaded, ps...)
	}
	return loaded, errs.ErrorOrNil()
}
