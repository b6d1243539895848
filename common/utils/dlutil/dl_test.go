package dlutil

import (
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		-1:      "unknown",
		0:       "0 B",
		512:     "512 B",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
	}
	for in, want := range tests {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestGetSpeed(t *testing.T) {
	if GetSpeed(100, time.Time{}) != 0 {
		t.Fatal("zero start time must yield zero speed")
	}
	if s := GetSpeed(100, time.Now().Add(-time.Second)); s <= 0 || s > 100 {
		t.Fatalf("unexpected speed %f", s)
	}
	if FormatSpeed(0) != "0 B/s" {
		t.Fatal("unexpected zero speed format")
	}
}
