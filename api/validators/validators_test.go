package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
)

type keyPayload struct {
	Key  string `json:"key" validate:"omitempty,oneof=0 1 2 clear"`
	Text string `json:"text" validate:"omitempty,max=8"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"key":"clear"}`))
	var payload keyPayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Key != "clear" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"key":"1","extra":true}`,
		"malformed":     `{"key":`,
		"bad key":       `{"key":"9"}`,
		"long text":     `{"text":"123456789"}`,
		"empty body":    ``,
		"two objects":   `{"key":"1"}{"key":"2"}`,
		"oversized":     `{"text":"` + strings.Repeat("1", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var payload keyPayload
		err := DecodeJSONBody(req, &payload)
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x&big=500", nil)
	if v, err := ParseQueryInt(req, "limit", 20, 1, 100); err != nil || v != 5 {
		t.Fatalf("expected 5, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 20, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 20, 1, 100); err == nil {
		t.Fatalf("expected numeric error")
	}
	if _, err := ParseQueryInt(req, "big", 20, 1, 100); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestParsePathIndex(t *testing.T) {
	if v, err := ParsePathIndex("3", "index"); err != nil || v != 3 {
		t.Fatalf("expected 3, got %d %v", v, err)
	}
	for _, raw := range []string{"-1", "x", ""} {
		if _, err := ParsePathIndex(raw, "index"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%q: expected validation error, got %v", raw, err)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  cnon:abc  ", 4); got != "cnon" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("cnon:\x00ok\t", 0); got != "cnon:ok" {
		t.Fatalf("expected control characters dropped, got %q", got)
	}
	if got := SanitizeString("café", 4); got != "café" {
		t.Fatalf("expected rune-safe cap, got %q", got)
	}
}
