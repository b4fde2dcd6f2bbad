package provider

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kapu/post-reactors/pkg/errors"
)

// Strategy selects how the post URL is handed to the provider job.
type Strategy string

const (
	// StrategyDirect passes the post URL under a single key.
	StrategyDirect Strategy = "direct"
	// StrategyCompany passes a company identifier derived from the URL plus the post URL.
	StrategyCompany Strategy = "company"
)

// ArgumentMapping describes the argument object the configured provider job expects.
// Job variants disagree on key names, so nothing here is inferred from the provider.
type ArgumentMapping struct {
	Strategy   Strategy `yaml:"strategy"`
	URLKey     string   `yaml:"url_key"`
	SessionKey string   `yaml:"session_key"`
	CompanyKey string   `yaml:"company_key"`
	TargetKey  string   `yaml:"target_key"`
	// CompanyURLFormat is an optional fmt pattern applied to the derived company id,
	// e.g. "https://www.linkedin.com/company/%s/".
	CompanyURLFormat string         `yaml:"company_url_format"`
	Static           map[string]any `yaml:"static"`
}

// DefaultMapping matches the "LinkedIn Post Likers" job: {postUrl, sessionCookie}.
func DefaultMapping() ArgumentMapping {
	return ArgumentMapping{
		Strategy:   StrategyDirect,
		URLKey:     "postUrl",
		SessionKey: "sessionCookie",
		CompanyKey: "companyUrl",
		TargetKey:  "postUrl",
	}
}

// LoadMapping reads a YAML mapping file. Missing keys keep their defaults.
func LoadMapping(path string) (ArgumentMapping, error) {
	mapping := DefaultMapping()

	data, err := os.ReadFile(path)
	if err != nil {
		return mapping, errors.NewConfigError("failed to read argument mapping", "PROVIDER_ARGUMENT_MAPPING_FILE").
			WithCause(err)
	}
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return mapping, errors.NewConfigError("failed to parse argument mapping", "PROVIDER_ARGUMENT_MAPPING_FILE").
			WithCause(err)
	}
	if err := mapping.Validate(); err != nil {
		return mapping, err
	}
	return mapping, nil
}

func (m ArgumentMapping) Validate() error {
	if m.SessionKey == "" {
		return errors.NewConfigError("argument mapping needs a session key", "session_key")
	}
	switch m.Strategy {
	case StrategyDirect:
		if m.URLKey == "" {
			return errors.NewConfigError("direct argument mapping needs a url key", "url_key")
		}
	case StrategyCompany:
		if m.CompanyKey == "" || m.TargetKey == "" {
			return errors.NewConfigError("company argument mapping needs company and target keys", "company_key")
		}
		if m.CompanyURLFormat != "" && strings.Count(m.CompanyURLFormat, "%s") != 1 {
			return errors.NewConfigError("company url format must contain exactly one %s", "company_url_format")
		}
	default:
		return errors.NewConfigError(fmt.Sprintf("unknown argument strategy %q", m.Strategy), "strategy")
	}
	return nil
}

// Build returns the provider argument object for one launch. Static entries never
// override the mapped keys.
func (m ArgumentMapping) Build(postURL, sessionCredential string) (map[string]any, error) {
	args := make(map[string]any, len(m.Static)+3)
	for k, v := range m.Static {
		args[k] = v
	}

	switch m.Strategy {
	case StrategyCompany:
		company := CompanyFromPostURL(postURL)
		if company == "" {
			return nil, errors.NewValidationError("could not derive a company from the post URL", "postUrl", postURL)
		}
		if m.CompanyURLFormat != "" {
			company = fmt.Sprintf(m.CompanyURLFormat, company)
		}
		args[m.CompanyKey] = company
		args[m.TargetKey] = postURL
	default:
		args[m.URLKey] = postURL
	}
	args[m.SessionKey] = sessionCredential

	return args, nil
}

// CompanyFromPostURL takes the path segment after /posts/ and cuts it at the first "_".
// Best effort: "https://www.linkedin.com/posts/acme_launch-123" yields "acme".
func CompanyFromPostURL(postURL string) string {
	path := postURL
	if u, err := url.Parse(postURL); err == nil && u.Path != "" {
		path = u.Path
	}

	_, rest, found := strings.Cut(path, "/posts/")
	if !found {
		return ""
	}
	segment, _, _ := strings.Cut(rest, "/")
	company, _, _ := strings.Cut(segment, "_")
	return strings.TrimSpace(company)
}
