package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "storage error carries its kind",
			err:  NewError(KindPermissionDenied, "op", errors.New("denied")),
			want: KindPermissionDenied,
		},
		{
			name: "wrapped storage error still resolves",
			err:  fmt.Errorf("outer: %w", NewError(KindStaleHandle, "op", errors.New("gone"))),
			want: KindStaleHandle,
		},
		{
			name: "plain error reads as transient",
			err:  errors.New("hiccup"),
			want: KindTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		kind ErrorKind
		want bool
	}{
		{"user cancellation is never retried", KindUserCancelled, false},
		{"corruption is not retried", KindCorruptionDetected, false},
		{"validation failure is not retried", KindValidationFailed, false},
		{"transient is retried", KindTransient, true},
		{"permission denial is retryable", KindPermissionDenied, true},
		{"stale handle is retryable", KindStaleHandle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.kind, "op", errors.New("x"))
			if got := Retryable(err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestSuggestionsOf(t *testing.T) {
	err := NewError(KindPermissionDenied, "op", errors.New("denied")).
		WithSuggestions("select a folder with write permission")

	got := SuggestionsOf(fmt.Errorf("wrapped: %w", err))
	if len(got) != 1 || got[0] != "select a folder with write permission" {
		t.Errorf("SuggestionsOf() = %v", got)
	}

	if s := SuggestionsOf(errors.New("plain")); s != nil {
		t.Errorf("SuggestionsOf(plain) = %v, want nil", s)
	}
}
