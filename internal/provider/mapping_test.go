package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kapu/post-reactors/pkg/errors"
)

func TestCompanyFromPostURL(t *testing.T) {
	tests := map[string]string{
		"https://www.linkedin.com/posts/acme_launch-activity-123": "acme",
		"https://www.linkedin.com/posts/acme_123/":                "acme",
		"https://www.linkedin.com/posts/solo-segment":             "solo-segment",
		"https://www.linkedin.com/feed/update/urn:li:activity:1":  "",
	}
	for in, want := range tests {
		if got := CompanyFromPostURL(in); got != want {
			t.Fatalf("CompanyFromPostURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildDirect(t *testing.T) {
	mapping := DefaultMapping()
	mapping.Static = map[string]any{"numberOfLikers": 3000, "postUrl": "ignored"}

	args, err := mapping.Build("https://www.linkedin.com/posts/acme_123", "cookie-value-0123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["postUrl"] != "https://www.linkedin.com/posts/acme_123" {
		t.Fatalf("static value must not override mapped key: %v", args)
	}
	if args["sessionCookie"] != "cookie-value-0123456789" {
		t.Fatalf("session cookie missing: %v", args)
	}
	if args["numberOfLikers"] != 3000 {
		t.Fatalf("static value missing: %v", args)
	}
}

func TestBuildCompany(t *testing.T) {
	mapping := DefaultMapping()
	mapping.Strategy = StrategyCompany
	mapping.CompanyURLFormat = "https://www.linkedin.com/company/%s/"

	args, err := mapping.Build("https://www.linkedin.com/posts/acme_123", "cookie-value-0123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["companyUrl"] != "https://www.linkedin.com/company/acme/" {
		t.Fatalf("unexpected company argument: %v", args)
	}
	if args["postUrl"] != "https://www.linkedin.com/posts/acme_123" {
		t.Fatalf("unexpected target argument: %v", args)
	}

	if _, err := mapping.Build("https://www.linkedin.com/feed/update/1", "cookie-value-0123456789"); !errors.Is(err, errors.KindValidation) {
		t.Fatalf("expected validation error for underivable company, got %v", err)
	}
}

func TestLoadMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	content := `strategy: company
company_key: companyUrl
target_key: postUrl
session_key: sessionCookie
static:
  numberOfLikers: 100
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	mapping, err := LoadMapping(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapping.Strategy != StrategyCompany || mapping.URLKey != "postUrl" {
		t.Fatalf("unexpected mapping: %+v", mapping)
	}
	if mapping.Static["numberOfLikers"] != 100 {
		t.Fatalf("static values not loaded: %+v", mapping.Static)
	}
}

func TestLoadMappingRejectsUnknownStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	if err := os.WriteFile(path, []byte("strategy: guess\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadMapping(path); !errors.Is(err, errors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
