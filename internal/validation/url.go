// Package validation holds the input checks applied before any provider call.
package validation

import (
	"math"
	"net/url"
	"strings"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/pkg/errors"
)

// ValidatePostURL accepts only regular LinkedIn post URLs.
func ValidatePostURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.NewValidationError("LinkedIn post URL is required", "linkedinPostUrl", raw)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewValidationError("Invalid URL format", "linkedinPostUrl", raw)
	}

	if !strings.Contains(u.Hostname(), "linkedin.com") {
		return errors.NewValidationError("URL must be from linkedin.com domain", "linkedinPostUrl", raw)
	}

	if strings.Contains(u.Path, "/pulse/") {
		return errors.NewValidationError(
			"Pulse posts (linkedin.com/pulse/...) are not supported. Please use regular LinkedIn posts.",
			"linkedinPostUrl", raw)
	}

	if !strings.Contains(u.Path, "/posts/") {
		return errors.NewValidationError("URL must be a LinkedIn post URL (containing /posts/)", "linkedinPostUrl", raw)
	}

	return nil
}

// EstimateExecutionTime returns the expected provider run time in seconds for a post with
// the given number of reactors. LinkedIn exposes at most 3000 of them.
func EstimateExecutionTime(likers int) int {
	if likers < 0 {
		likers = 0
	}
	if likers > constants.LinkedInLimits.MaxLikers {
		likers = constants.LinkedInLimits.MaxLikers
	}
	perBatch := float64(constants.LinkedInLimits.LikersPerBatch)
	seconds := math.Ceil(float64(likers) / perBatch * float64(constants.LinkedInLimits.SecondsPerBatch))
	return int(seconds) + constants.LinkedInLimits.SetupSeconds
}
