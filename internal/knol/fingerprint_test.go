package knol

import (
	"testing"
)

func strPtr(s string) *string { return &s }

func TestNormalize(t *testing.T) {
	content := "  # Chapter 1 \r\nCells divide.\t\r\n\r\n"
	expected := "# Chapter 1\nCells divide."
	normalized := Normalize(content)

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		// sha256("abc")
		expectedHash := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
		hash := Fingerprint(strPtr("abc"))

		if hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("nil content has no fingerprint", func(t *testing.T) {
		if hash := Fingerprint(nil); hash != "" {
			t.Errorf("Expected empty fingerprint for nil content, but got '%s'", hash)
		}
	})

	t.Run("line endings do not change the fingerprint", func(t *testing.T) {
		a := Fingerprint(strPtr("line one\r\nline two\r\n"))
		b := Fingerprint(strPtr("line one\nline two"))
		if a != b {
			t.Error("Expected fingerprints to be the same after normalization, but they were different.")
		}
	})

	t.Run("case is significant", func(t *testing.T) {
		a := Fingerprint(strPtr("Mitosis"))
		b := Fingerprint(strPtr("mitosis"))
		if a == b {
			t.Error("Expected fingerprints for differently cased content to differ")
		}
	})
}
