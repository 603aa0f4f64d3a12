package security

import (
	"testing"
	"time"
)

var opts = DefaultOptions([]byte("unit-test-secret"))

func TestVerifyRoundTrip(t *testing.T) {
	tok, err := Sign(opts, Identity{UserID: "u1", FirstName: "Alice", LastName: "Doe"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v, err := NewJWTVerifier(opts)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	id, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "u1" || id.FullName() != "Alice Doe" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyRejections(t *testing.T) {
	v, err := NewJWTVerifier(opts)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	otherSecret := DefaultOptions([]byte("some-other-secret"))
	cases := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"garbage", func(t *testing.T) string { return "not-a-jwt" }},
		{"empty", func(t *testing.T) string { return "" }},
		{"wrong secret", func(t *testing.T) string {
			tok, err := Sign(otherSecret, Identity{UserID: "u1"}, time.Hour)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return tok
		}},
		{"expired", func(t *testing.T) string {
			tok, err := Sign(opts, Identity{UserID: "u1"}, -time.Hour)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return tok
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(tc.token(t)); err == nil {
				t.Errorf("token accepted")
			}
		})
	}
}

func TestVerifierConfig(t *testing.T) {
	if _, err := NewJWTVerifier(Options{Secret: nil}); err == nil {
		t.Error("empty secret accepted")
	}
	if _, err := NewJWTVerifier(Options{Secret: []byte("k"), Alg: "RS256"}); err == nil {
		t.Error("non-HMAC alg accepted")
	}
	if _, err := NewJWTVerifier(Options{Secret: []byte("k"), Alg: "hs384"}); err != nil {
		t.Errorf("case-insensitive alg rejected: %v", err)
	}
}

func TestSignTTLHandling(t *testing.T) {
	v, _ := NewJWTVerifier(opts)

	// zero means "use the default"; the token comes out live
	tok, err := Sign(opts, Identity{UserID: "u1"}, 0)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(tok); err != nil {
		t.Errorf("default-ttl token rejected: %v", err)
	}

	// a negative ttl must produce a token that is already expired, not a
	// silently live one
	tok, err = Sign(opts, Identity{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(tok); err == nil {
		t.Error("negative-ttl token accepted")
	}
}
