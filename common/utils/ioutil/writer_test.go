package ioutil

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestProgressWriter(t *testing.T) {
	var buf bytes.Buffer
	total := 0
	w := NewProgressWriter(&buf, func(n int) { total += n })
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(" world")); err != nil {
		t.Fatal(err)
	}
	if total != 11 || buf.String() != "hello world" {
		t.Fatalf("total = %d, buf = %q", total, buf.String())
	}
}

func TestCopyWithContext(t *testing.T) {
	var buf bytes.Buffer
	n, err := CopyWithContext(context.Background(), &buf, strings.NewReader("abc"))
	if err != nil || n != 3 {
		t.Fatalf("n = %d, err = %v", n, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CopyWithContext(ctx, &buf, strings.NewReader("abc"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
