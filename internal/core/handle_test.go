package core

import "testing"

func TestHandleRefCodec(t *testing.T) {
	ref := HandleRef{Type: "directory", Root: "/home/u1/debts"}

	blob, err := ref.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := DecodeHandleRef(blob)
	if err != nil {
		t.Fatalf("DecodeHandleRef() error = %v", err)
	}
	if got != ref {
		t.Errorf("DecodeHandleRef() = %+v, want %+v", got, ref)
	}
}

func TestDecodeHandleRefRejectsGarbage(t *testing.T) {
	if _, err := DecodeHandleRef([]byte("not json")); err == nil {
		t.Error("DecodeHandleRef() should reject malformed input")
	}
}
