package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/domain"
	"github.com/kapu/post-reactors/internal/logstream"
	"github.com/kapu/post-reactors/internal/provider"
	"github.com/kapu/post-reactors/internal/util"
	"github.com/kapu/post-reactors/internal/validation"
	"github.com/kapu/post-reactors/pkg/errors"
)

// Store is the persistence the orchestration needs.
type Store interface {
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	FindPostByURL(ctx context.Context, postURL string) (*domain.Post, error)
	CreatePost(ctx context.Context, projectID int64, postURL string) (*domain.Post, error)
	SaveProfiles(ctx context.Context, postID int64, profiles []domain.ProfileRecord) ([]domain.StoredProfile, error)
}

type Launcher interface {
	Launch(ctx context.Context, postURL, sessionCredential string) (*domain.Job, error)
}

type Poller interface {
	Poll(ctx context.Context, job *domain.Job) ([]domain.ProfileRecord, *provider.PollStats, error)
}

// Locker guards against two concurrent scrapes of one URL.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Invalidator drops cached profiles of a post.
type Invalidator interface {
	Invalidate(ctx context.Context, postID int64)
}

// Recorder receives orchestration metrics.
type Recorder interface {
	ScrapeStarted() func()
	ObserveScrape(result string, elapsed time.Duration, attempts, profiles int)
}

type Options struct {
	SessionCredential string
	LockTTL           time.Duration
	BatchConcurrency  int
}

// Service runs launch, poll, normalize and persist for one post URL per call.
type Service struct {
	store    Store
	launcher Launcher
	poller   Poller
	reporter logstream.Reporter
	recorder Recorder
	logger   *zap.Logger
	opts     Options

	locker      Locker
	invalidator Invalidator
}

func NewService(store Store, launcher Launcher, poller Poller, reporter logstream.Reporter, recorder Recorder, opts Options, logger *zap.Logger) *Service {
	if opts.LockTTL <= 0 {
		opts.LockTTL = constants.CacheTTL.ScrapeLock
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = constants.BatchConfig.MaxConcurrency
	}
	return &Service{
		store:    store,
		launcher: launcher,
		poller:   poller,
		reporter: reporter,
		recorder: recorder,
		logger:   logger,
		opts:     opts,
	}
}

// WithLocker enables the in-flight guard.
func (s *Service) WithLocker(locker Locker) *Service {
	s.locker = locker
	return s
}

// WithInvalidator drops cached profiles after each save.
func (s *Service) WithInvalidator(invalidator Invalidator) *Service {
	s.invalidator = invalidator
	return s
}

// Scrape validates the request, runs the provider job to completion and stores the result.
// Nothing is sent to the provider when validation fails.
func (s *Service) Scrape(ctx context.Context, postURL string, projectID int64) (*domain.ScrapeResult, error) {
	start := time.Now()
	postURL = strings.TrimSpace(postURL)
	done := s.recorder.ScrapeStarted()
	defer done()

	result, attempts, err := s.scrape(ctx, postURL, projectID)
	elapsed := time.Since(start)

	if err != nil {
		appErr := toAppError(err)
		s.reporter.Report(domain.LogError, appErr.Message, errorData(appErr))
		s.recorder.ObserveScrape(string(appErr.Kind), elapsed, attempts, 0)
		return nil, appErr
	}

	result.Elapsed = elapsed
	s.recorder.ObserveScrape("success", elapsed, result.Attempts, len(result.Profiles))
	s.reporter.Report(domain.LogSuccess, "Scrape completed", map[string]any{
		"postId":   result.PostID,
		"profiles": len(result.Profiles),
		"elapsed":  elapsed.Round(time.Second).String(),
	})
	return result, nil
}

func (s *Service) scrape(ctx context.Context, postURL string, projectID int64) (*domain.ScrapeResult, int, error) {
	if err := validation.ValidatePostURL(postURL); err != nil {
		return nil, 0, err
	}
	if projectID <= 0 {
		return nil, 0, errors.NewValidationError("Project ID is required", "projectId", projectID)
	}

	s.reporter.Report(domain.LogOperation, "Starting scrape", map[string]any{
		"postUrl":   postURL,
		"projectId": projectID,
	})

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}
	if project == nil {
		return nil, 0, errors.NewNotFoundError("project", projectID)
	}

	release, err := s.lock(ctx, postURL)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	s.reporter.Report(domain.LogAPI, "Launching PhantomBuster agent", map[string]any{"postUrl": postURL})
	job, err := s.launcher.Launch(ctx, postURL, s.opts.SessionCredential)
	if err != nil {
		return nil, 0, err
	}

	s.reporter.Report(domain.LogInfo, "Agent launched, waiting for results", map[string]any{
		"containerId": job.ContainerID,
	})
	profiles, stats, err := s.poller.Poll(ctx, job)
	attempts := 0
	if stats != nil {
		attempts = stats.Attempts
	}
	if err != nil {
		return nil, attempts, err
	}

	s.reporter.Report(domain.LogInfo, "Results received", map[string]any{
		"containerId": job.ContainerID,
		"attempts":    attempts,
		"profiles":    len(profiles),
	})
	if len(profiles) == 0 {
		s.reporter.Report(domain.LogWarning, "No profiles found in provider output", nil)
	}

	post, err := s.findOrCreatePost(ctx, projectID, postURL)
	if err != nil {
		return nil, attempts, err
	}

	if _, err := s.store.SaveProfiles(ctx, post.ID, profiles); err != nil {
		return nil, attempts, err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, post.ID)
	}

	return &domain.ScrapeResult{
		PostID:      post.ID,
		ProjectID:   post.ProjectID,
		PostURL:     post.PostURL,
		ContainerID: job.ContainerID,
		Profiles:    profiles,
		Attempts:    attempts,
	}, attempts, nil
}

// findOrCreatePost reuses the existing post for an exact URL match.
func (s *Service) findOrCreatePost(ctx context.Context, projectID int64, postURL string) (*domain.Post, error) {
	post, err := s.store.FindPostByURL(ctx, postURL)
	if err != nil {
		return nil, err
	}
	if post != nil {
		s.reporter.Report(domain.LogInfo, "Reusing existing post", map[string]any{"postId": post.ID})
		return post, nil
	}

	post, err = s.store.CreatePost(ctx, projectID, postURL)
	if err != nil {
		return nil, err
	}
	s.reporter.Report(domain.LogInfo, "Post created", map[string]any{"postId": post.ID})
	return post, nil
}

// lock takes the in-flight guard for postURL. Cache failures only disable the guard.
func (s *Service) lock(ctx context.Context, postURL string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	key := "lock:scrape:" + postURL
	token := uuid.NewString()

	acquired, err := s.locker.AcquireLock(ctx, key, token, s.opts.LockTTL)
	if err != nil {
		s.logger.Warn("Scrape lock unavailable, continuing without it", zap.Error(err))
		return noop, nil
	}
	if !acquired {
		return nil, errors.New(errors.KindConflict, "A scrape for this post is already running").
			WithContext("postUrl", postURL)
	}

	return func() {
		// the request context may already be cancelled here
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, key, token); err != nil {
			s.logger.Warn("Failed to release scrape lock", zap.String("post_url", postURL), zap.Error(err))
		}
	}, nil
}

// BatchItem is the outcome for one URL of a batch.
type BatchItem struct {
	PostURL string               `json:"postUrl"`
	Result  *domain.ScrapeResult `json:"result,omitempty"`
	Error   *errors.AppError     `json:"-"`
}

// ScrapeBatch scrapes distinct URLs with bounded concurrency. Results keep the input order.
func (s *Service) ScrapeBatch(ctx context.Context, urls []string, projectID int64) ([]BatchItem, error) {
	urls = util.UniqueStrings(urls)
	if len(urls) == 0 {
		return nil, errors.NewValidationError("At least one LinkedIn post URL is required", "urls", len(urls))
	}
	if len(urls) > constants.BatchConfig.MaxURLs {
		return nil, errors.NewValidationError("Too many URLs in one batch", "urls", len(urls)).
			WithContext("max", constants.BatchConfig.MaxURLs)
	}

	s.reporter.Report(domain.LogOperation, "Starting batch scrape", map[string]any{
		"urls":      len(urls),
		"projectId": projectID,
	})

	p := pool.New().WithMaxGoroutines(s.opts.BatchConcurrency)
	items := make([]BatchItem, len(urls))

	for idx, postURL := range urls {
		idx, postURL := idx, postURL
		p.Go(func() {
			result, err := s.Scrape(ctx, postURL, projectID)
			item := BatchItem{PostURL: postURL, Result: result}
			if err != nil {
				item.Error = toAppError(err)
			}
			items[idx] = item
		})
	}
	p.Wait()

	return items, nil
}

func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	return errors.New(errors.KindInternal, "Failed to scrape LinkedIn profiles").WithCause(err)
}

func errorData(err *errors.AppError) map[string]any {
	data := map[string]any{"category": string(err.Kind)}
	if err.Detail != "" {
		data["details"] = err.Detail
	}
	for k, v := range err.Context {
		if k == "body" {
			continue
		}
		data[k] = v
	}
	return data
}
