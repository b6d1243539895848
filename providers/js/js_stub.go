//go:build no_jsparser

package js

import (
	"context"
	"errors"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/provider"
)

var ErrUnsupported = errors.New("JS provider plugins are not supported in this build")

func LoadPlugin(ctx context.Context, client fetch.Client, name, code string) ([]provider.Provider, error) {
	return nil, ErrUnsupported
}

func LoadPlugins(ctx context.Context, client fetch.Client, dir string) ([]provider.Provider, error) {
	return nil, ErrUnsupported
}
