package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/domain"
	"github.com/kapu/post-reactors/internal/scrape"
	"github.com/kapu/post-reactors/internal/validation"
	"github.com/kapu/post-reactors/pkg/errors"
)

// Projects is the project store used by the handlers.
type Projects interface {
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	CreateProject(ctx context.Context, name string) (*domain.Project, error)
	GetProjectWithPosts(ctx context.Context, id int64) (*domain.ProjectWithPosts, error)
}

// Profiles lists stored profiles of a post.
type Profiles interface {
	ListProfilesByPost(ctx context.Context, postID int64) ([]domain.StoredProfile, error)
}

// Scraper runs scrape orchestrations.
type Scraper interface {
	Scrape(ctx context.Context, postURL string, projectID int64) (*domain.ScrapeResult, error)
	ScrapeBatch(ctx context.Context, urls []string, projectID int64) ([]scrape.BatchItem, error)
}

// LogSource is the terminal log buffer.
type LogSource interface {
	Recent(limit int) []domain.LogEntry
	Clear()
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// HealthCheck reports one dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	projects Projects
	profiles Profiles
	scraper  Scraper
	logs     LogSource
	checks   map[string]HealthCheck
	status   func() any
	logger   *zap.Logger
}

type scrapeRequest struct {
	LinkedInPostURL string `json:"linkedinPostUrl"`
	ProjectID       flexID `json:"projectId"`
}

type batchRequest struct {
	URLs      []string `json:"urls"`
	ProjectID flexID   `json:"projectId"`
}

type createProjectRequest struct {
	Name string `json:"name"`
}

type scrapeResponse struct {
	Success     bool                   `json:"success"`
	PostID      int64                  `json:"postId"`
	ContainerID string                 `json:"containerId"`
	Profiles    []domain.ProfileRecord `json:"profiles"`
	Count       int                    `json:"count"`
	Attempts    int                    `json:"attempts"`
	ElapsedMs   int64                  `json:"elapsedMs"`
}

type batchItemResponse struct {
	PostURL string          `json:"postUrl"`
	Success bool            `json:"success"`
	Result  *scrapeResponse `json:"result,omitempty"`
	Error   *errorResponse  `json:"error,omitempty"`
}

func toScrapeResponse(result *domain.ScrapeResult) *scrapeResponse {
	profiles := result.Profiles
	if profiles == nil {
		profiles = []domain.ProfileRecord{}
	}
	return &scrapeResponse{
		Success:     true,
		PostID:      result.PostID,
		ContainerID: result.ContainerID,
		Profiles:    profiles,
		Count:       len(profiles),
		Attempts:    result.Attempts,
		ElapsedMs:   result.Elapsed.Milliseconds(),
	}
}

// orchestrationContext keeps request values but not its cancellation: a provider job
// that was launched runs to completion or to the poll cap even if the client leaves.
func orchestrationContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// ListProjects handles GET /api/projects.
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	statusOK(c, projects)
}

// CreateProject handles POST /api/projects.
func (h *Handler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GetProject handles GET /api/projects/:id.
func (h *Handler) GetProject(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	project, err := h.projects.GetProjectWithPosts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if project == nil {
		respondError(c, errors.NewNotFoundError("project", id))
		return
	}
	statusOK(c, project)
}

// Scrape handles POST /api/scrape.
func (h *Handler) Scrape(c *gin.Context) {
	var req scrapeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if req.LinkedInPostURL == "" {
		respondError(c, errors.NewValidationError("LinkedIn post URL is required", "linkedinPostUrl", ""))
		return
	}

	result, err := h.scraper.Scrape(orchestrationContext(c), req.LinkedInPostURL, int64(req.ProjectID))
	if err != nil {
		respondError(c, err)
		return
	}
	statusOK(c, toScrapeResponse(result))
}

// ScrapeBatch handles POST /api/scrape/batch.
func (h *Handler) ScrapeBatch(c *gin.Context) {
	var req batchRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	items, err := h.scraper.ScrapeBatch(orchestrationContext(c), req.URLs, int64(req.ProjectID))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]batchItemResponse, 0, len(items))
	succeeded := 0
	for _, item := range items {
		out := batchItemResponse{PostURL: item.PostURL}
		if item.Error != nil {
			_, body := newErrorResponse(item.Error)
			out.Error = &body
		} else if item.Result != nil {
			out.Success = true
			out.Result = toScrapeResponse(item.Result)
			succeeded++
		}
		resp = append(resp, out)
	}

	statusOK(c, gin.H{
		"total":     len(items),
		"succeeded": succeeded,
		"results":   resp,
	})
}

// ListProfiles handles GET /api/posts/:id/profiles.
func (h *Handler) ListProfiles(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	profiles, err := h.profiles.ListProfilesByPost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	statusOK(c, gin.H{"postId": id, "count": len(profiles), "profiles": profiles})
}

// Estimate handles GET /api/estimate?likers=N.
func (h *Handler) Estimate(c *gin.Context) {
	likers, err := strconv.Atoi(c.DefaultQuery("likers", "0"))
	if err != nil || likers < 0 {
		respondError(c, errors.NewValidationError("likers must be a non-negative integer", "likers", c.Query("likers")))
		return
	}

	statusOK(c, gin.H{
		"likers":           likers,
		"estimatedSeconds": validation.EstimateExecutionTime(likers),
		"maxLikers":        constants.LinkedInLimits.MaxLikers,
	})
}

// Logs handles GET /api/logs.
func (h *Handler) Logs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	statusOK(c, h.logs.Recent(limit))
}

// ClearLogs handles DELETE /api/logs.
func (h *Handler) ClearLogs(c *gin.Context) {
	h.logs.Clear()
	c.Status(http.StatusNoContent)
}

// StreamLogs handles GET /ws/logs.
func (h *Handler) StreamLogs(c *gin.Context) {
	h.logs.ServeWS(c.Writer, c.Request)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	body := gin.H{"status": "ok", "checks": checks}
	if h.status != nil {
		body["provider"] = h.status()
	}

	status := http.StatusOK
	if !healthy {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}
