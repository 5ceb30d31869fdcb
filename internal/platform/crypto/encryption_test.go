package crypto

import (
	"strings"
	"testing"
)

func TestRoundTripWithKey(t *testing.T) {
	c, err := New(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	if !c.Configured() {
		t.Fatal("expected configured cipher")
	}
	sealed, err := c.EncryptString("4821")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if string(sealed) == "4821" {
		t.Fatal("expected ciphertext to differ from plaintext")
	}
	plain, err := c.DecryptString(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "4821" {
		t.Fatalf("expected 4821, got %q", plain)
	}
}

func TestPassthroughWithoutKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	sealed, _ := c.EncryptString("0000")
	if string(sealed) != "0000" {
		t.Fatalf("expected passthrough, got %q", sealed)
	}
	plain, _ := c.DecryptString(sealed)
	if plain != "0000" {
		t.Fatalf("expected 0000, got %q", plain)
	}
}

func TestEmptyValues(t *testing.T) {
	c, _ := New(strings.Repeat("ab", 32))
	sealed, err := c.EncryptString("")
	if err != nil || sealed != nil {
		t.Fatalf("expected nil for empty input, got %v %v", sealed, err)
	}
	plain, err := c.DecryptString(nil)
	if err != nil || plain != "" {
		t.Fatalf("expected empty output, got %q %v", plain, err)
	}
}

func TestRejectsShortKey(t *testing.T) {
	if _, err := New("short"); err != ErrKeyLength {
		t.Fatalf("expected ErrKeyLength, got %v", err)
	}
}

func TestDecryptTruncated(t *testing.T) {
	c, _ := New(strings.Repeat("ab", 32))
	if _, err := c.DecryptString([]byte{1, 2}); err != ErrCiphertextShort {
		t.Fatalf("expected ErrCiphertextShort, got %v", err)
	}
}
