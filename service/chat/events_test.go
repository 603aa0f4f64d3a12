package chat

import "testing"

func TestEnvelopeRoundTrip(t *testing.T) {
	raw, err := EncodeEvent(EventAuthError, AuthErrorPayload{Status: 500, Error: "Please provide correct auth token"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Name != EventAuthError {
		t.Fatalf("name = %q", env.Name)
	}
	m, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", env.Data)
	}
	if m["status"] != float64(500) || m["error"] != "Please provide correct auth token" {
		t.Errorf("payload = %v", m)
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("not json")); err == nil {
		t.Error("malformed frame accepted")
	}
	if _, err := DecodeEnvelope([]byte(`{"data":1}`)); err == nil {
		t.Error("frame without event name accepted")
	}
}

func TestChallengeHasNoPayload(t *testing.T) {
	raw, err := EncodeEvent(EventVerifyUser, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != `{"name":"verify-user"}` {
		t.Errorf("challenge frame = %s", raw)
	}
}
