package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/domain"
	"github.com/kapu/post-reactors/pkg/errors"
)

// Launcher submits provider jobs for a single configured agent.
type Launcher struct {
	api     API
	apiKey  string
	agentID string
	mapping ArgumentMapping
	now     func() time.Time
	logger  *zap.Logger
}

func NewLauncher(api API, apiKey, agentID string, mapping ArgumentMapping, logger *zap.Logger) *Launcher {
	return &Launcher{
		api:     api,
		apiKey:  apiKey,
		agentID: agentID,
		mapping: mapping,
		now:     time.Now,
		logger:  logger,
	}
}

// CheckConfig reports missing provider settings without launching anything.
func (l *Launcher) CheckConfig(sessionCredential string) error {
	if l.apiKey == "" || l.agentID == "" {
		return errors.NewConfigError("PhantomBuster API credentials not configured", "PHANTOMBUSTER_API_KEY")
	}
	if sessionCredential == "" {
		return errors.NewConfigError("LinkedIn session cookie not configured", "LINKEDIN_SESSION_COOKIE")
	}
	if minLen := constants.CredentialConfig.MinSessionCookieLength; len(sessionCredential) < minLen {
		return errors.NewConfigError("LinkedIn session cookie is too short", "LINKEDIN_SESSION_COOKIE").
			WithContext("min_length", minLen).
			WithContext("length", len(sessionCredential))
	}
	return l.mapping.Validate()
}

// Launch starts one provider job for postURL and returns its container id.
func (l *Launcher) Launch(ctx context.Context, postURL, sessionCredential string) (*domain.Job, error) {
	if err := l.CheckConfig(sessionCredential); err != nil {
		return nil, err
	}

	args, err := l.mapping.Build(postURL, sessionCredential)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Launching provider job",
		zap.String("agent_id", l.agentID),
		zap.String("strategy", string(l.mapping.Strategy)),
		zap.String("post_url", postURL),
	)

	containerID, err := l.api.Launch(ctx, l.agentID, args)
	if err != nil {
		return nil, err
	}

	return &domain.Job{
		ContainerID: containerID,
		LaunchedAt:  l.now(),
	}, nil
}
