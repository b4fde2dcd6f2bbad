package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSetsStatusFromKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, 400},
		{KindSessionExpired, 401},
		{KindNotFound, 404},
		{KindConflict, 409},
		{KindRateLimited, 429},
		{KindProvider, 502},
		{KindTimeout, 504},
		{Kind("SOMETHING_ELSE"), 500},
	}

	for _, tt := range tests {
		if got := New(tt.kind, "x").StatusCode; got != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.kind, tt.want, got)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := NewTimeoutError("Timeout waiting for PhantomBuster results", 60)
	wrapped := fmt.Errorf("scrape: %w", base)

	if KindOf(wrapped) != KindTimeout {
		t.Fatalf("expected TIMEOUT, got %s", KindOf(wrapped))
	}
	if !Is(wrapped, KindTimeout) {
		t.Fatalf("expected Is to match")
	}
	if Is(nil, KindTimeout) {
		t.Fatalf("nil must not match any kind")
	}
	if KindOf(stderrors.New("plain")) != KindInternal {
		t.Fatalf("plain errors are internal")
	}
}

func TestErrorString(t *testing.T) {
	withCause := NewStorageError("Failed to save profiles", "save_profiles", stderrors.New("conn reset"))
	if got := withCause.Error(); got != "Failed to save profiles: conn reset" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !stderrors.Is(withCause, withCause.Cause) {
		t.Fatalf("expected Unwrap to expose cause")
	}

	withDetail := New(KindSessionExpired, "LinkedIn session expired").WithDetail("cookie expired")
	if got := withDetail.Error(); got != "LinkedIn session expired: cookie expired" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestProviderErrorTruncatesBody(t *testing.T) {
	err := NewProviderError(KindProvider, "PhantomBuster request failed", 500, strings.Repeat("a", 600))

	body := err.Context["body"].(string)
	if len(body) != 515 || !strings.HasSuffix(body, "...") {
		t.Fatalf("expected truncated body, got %d chars", len(body))
	}
	if err.Context["status"] != 500 {
		t.Fatalf("expected status in context")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("short strings must be unchanged, got %q", got)
	}

	body := strings.Repeat("é", 600)
	err := NewProviderError(KindProvider, "PhantomBuster request failed", 500, body)
	got := err.Context["body"].(string)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated body is not valid UTF-8")
	}
	if utf8.RuneCountInString(got) != 515 {
		t.Fatalf("expected 512 runes plus marker, got %d", utf8.RuneCountInString(got))
	}
}
