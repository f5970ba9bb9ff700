package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDMHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := &dmHandler{w: &buf, sessionID: "s1"}

	r := slog.NewRecord(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), slog.LevelInfo, "session connected", 0)
	r.AddAttrs(slog.String("user", "u1"))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	want := "2024-01-15T10:30:00Z\tINFO\ts1\tsession connected\tuser=u1\n"
	if got != want {
		t.Errorf("Handle() wrote %q, want %q", got, want)
	}
}

func TestDMHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &dmHandler{w: &buf, sessionID: "s1"}
	h = h.WithAttrs([]slog.Attr{slog.String("user", "u1")})

	r := slog.NewRecord(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), slog.LevelWarn, "tier failed", 0)
	r.AddAttrs(slog.String("tier", "handle"))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "user=u1") || !strings.Contains(got, "tier=handle") {
		t.Errorf("Handle() wrote %q, want both pre-set and per-record attrs", got)
	}
	if !strings.Contains(got, "WARN") {
		t.Errorf("Handle() wrote %q, want the WARN level", got)
	}
}
