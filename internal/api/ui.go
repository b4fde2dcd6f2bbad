package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/domain"
)

//go:embed templates/index.html
var templateFS embed.FS

// UI renders the single-page form and terminal view.
type UI struct {
	projects Projects
	tmpl     *template.Template
	logger   *zap.Logger
}

type indexData struct {
	Projects  []*domain.Project
	MaxLikers int
	Error     string
}

func newUI(projects Projects, logger *zap.Logger) (*UI, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &UI{projects: projects, tmpl: tmpl, logger: logger}, nil
}

// Index handles GET /. A project store failure still renders the page with a notice.
func (u *UI) Index(c *gin.Context) {
	data := indexData{MaxLikers: constants.LinkedInLimits.MaxLikers}

	projects, err := u.projects.ListProjects(c.Request.Context())
	if err != nil {
		u.logger.Warn("Failed to load projects for UI", zap.Error(err))
		data.Error = "Failed to load projects"
	}
	data.Projects = projects

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := u.tmpl.Execute(c.Writer, data); err != nil {
		u.logger.Error("Failed to render UI", zap.Error(err))
	}
}
