package security

import "testing"

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}

	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	first, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens")
	}
	if len(first) == 0 {
		t.Fatal("expected non-empty token")
	}
}

func TestHashTokenIsStableAndOpaque(t *testing.T) {
	h1 := HashToken("123456")
	h2 := HashToken("123456")
	if h1 != h2 {
		t.Fatal("expected deterministic hash")
	}
	if h1 == "123456" {
		t.Fatal("expected hash to differ from input")
	}
	if HashToken("654321") == h1 {
		t.Fatal("expected different inputs to hash differently")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("abc", "abc") {
		t.Fatal("expected equal strings to match")
	}
	if ConstantTimeEqual("abc", "abd") {
		t.Fatal("expected different strings to mismatch")
	}
	if ConstantTimeEqual("abc", "abcd") {
		t.Fatal("expected different lengths to mismatch")
	}
}
