// Package output renders posts and page info for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/krau/skraper/common/utils/fsutil"
	"github.com/krau/skraper/pkg/media"
)

type Format string

const (
	FormatLog  Format = "log"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var Formats = []Format{FormatLog, FormatJSON, FormatYAML}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "log", "txt":
		return FormatLog, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q, must be one of log, json, yaml", s)
}

func (f Format) Extension() string {
	return string(f)
}

// Write renders v, a []media.Post, *media.PageInfo or media.Media, in format f.
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case FormatYAML:
		data, err := yaml.MarshalWithOptions(v, yaml.UseJSONMarshaler(), yaml.IndentSequence(true))
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatLog, "":
		switch v := v.(type) {
		case []media.Post:
			return writePostsLog(w, v)
		case *media.PageInfo:
			return writePageLog(w, v)
		case media.Media:
			_, err := fmt.Fprintln(w, formatMedia(v))
			return err
		}
		return fmt.Errorf("cannot render %T as log", v)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// TargetFile is <output>/<provider>/<path>_<ddMMyyyy_hhmmss>.<ext>.
func TargetFile(output, providerName, path string, f Format, now time.Time) string {
	dir := filepath.Join(output, fsutil.NormalizePathname(providerName))
	name := fsutil.NormalizePath(path)
	if name == "" {
		name = "root"
	}
	return filepath.Join(dir, name+"_"+now.Format("02012006_150405")+"."+f.Extension())
}
