package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/domain"
	"github.com/kapu/post-reactors/pkg/errors"
)

const foreignKeyViolation = "23503"

// Repository is the project/post/profile store.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(postgres *PostgresService, logger *zap.Logger) *Repository {
	return &Repository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// ListProjects returns all projects, oldest first.
func (r *Repository) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM projects
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewStorageError("failed to list projects", "list_projects", err)
	}
	defer rows.Close()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, errors.NewStorageError("failed to scan project", "list_projects", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to iterate projects", "list_projects", err)
	}

	return projects, nil
}

// CreateProject inserts a project. The name is trimmed and must not be empty.
func (r *Repository) CreateProject(ctx context.Context, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("Project name is required", "name", name)
	}

	query := `
		INSERT INTO projects (name)
		VALUES ($1)
		RETURNING id, name, created_at, updated_at
	`

	var p domain.Project
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, errors.NewStorageError("failed to create project", "create_project", err)
	}

	r.logger.Info("Project created", zap.Int64("project_id", p.ID), zap.String("name", p.Name))
	return &p, nil
}

// GetProject returns nil, nil when the project does not exist.
func (r *Repository) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	var p domain.Project
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to query project", "get_project", err)
	}
	return &p, nil
}

// GetProjectWithPosts returns the project and its posts, newest post first.
func (r *Repository) GetProjectWithPosts(ctx context.Context, id int64) (*domain.ProjectWithPosts, error) {
	project, err := r.GetProject(ctx, id)
	if err != nil || project == nil {
		return nil, err
	}

	query := `
		SELECT id, project_id, post_url, created_at, updated_at
		FROM linkedin_posts
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, errors.NewStorageError("failed to list posts", "get_project_with_posts", err)
	}
	defer rows.Close()

	result := &domain.ProjectWithPosts{Project: *project, Posts: make([]*domain.Post, 0)}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, errors.NewStorageError("failed to scan post", "get_project_with_posts", err)
		}
		result.Posts = append(result.Posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to iterate posts", "get_project_with_posts", err)
	}

	return result, nil
}

// FindPostByURL matches the URL exactly and returns nil, nil when absent.
func (r *Repository) FindPostByURL(ctx context.Context, postURL string) (*domain.Post, error) {
	query := `
		SELECT id, project_id, post_url, created_at, updated_at
		FROM linkedin_posts
		WHERE post_url = $1
		LIMIT 1
	`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, postURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to query post by url", "find_post_by_url", err)
	}
	return post, nil
}

// CreatePost inserts the post or returns the existing row for the same URL.
// Concurrent callers for one URL all receive the same id.
func (r *Repository) CreatePost(ctx context.Context, projectID int64, postURL string) (*domain.Post, error) {
	query := `
		INSERT INTO linkedin_posts (project_id, post_url)
		VALUES ($1, $2)
		ON CONFLICT (post_url) DO UPDATE SET updated_at = NOW()
		RETURNING id, project_id, post_url, created_at, updated_at
	`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, projectID, postURL))
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation {
			return nil, errors.NewNotFoundError("project", projectID)
		}
		return nil, errors.NewStorageError("failed to create post", "create_post", err)
	}
	return post, nil
}

// SaveProfiles inserts all records in one transaction. Empty input is a no-op.
func (r *Repository) SaveProfiles(ctx context.Context, postID int64, profiles []domain.ProfileRecord) ([]domain.StoredProfile, error) {
	saved := make([]domain.StoredProfile, 0, len(profiles))
	if len(profiles) == 0 {
		return saved, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to begin transaction", "save_profiles", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO linkedin_profiles (post_id, profile_url, name, headline)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`)
	if err != nil {
		return nil, errors.NewStorageError("failed to prepare profile insert", "save_profiles", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		if p.ProfileURL == "" {
			continue
		}
		stored := domain.StoredProfile{PostID: postID, ProfileRecord: p}
		if err := stmt.QueryRowContext(ctx, postID, p.ProfileURL, nullString(p.Name), nullString(p.Headline)).
			Scan(&stored.ID, &stored.CreatedAt); err != nil {
			return nil, errors.NewStorageError("failed to insert profile", "save_profiles", err)
		}
		saved = append(saved, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("failed to commit profiles", "save_profiles", err)
	}

	r.logger.Info("Profiles saved", zap.Int64("post_id", postID), zap.Int("count", len(saved)))
	return saved, nil
}

// ListProfilesByPost returns stored profiles in insertion order.
func (r *Repository) ListProfilesByPost(ctx context.Context, postID int64) ([]domain.StoredProfile, error) {
	query := `
		SELECT id, post_id, profile_url, name, headline, created_at
		FROM linkedin_profiles
		WHERE post_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, errors.NewStorageError("failed to list profiles", "list_profiles_by_post", err)
	}
	defer rows.Close()

	profiles := make([]domain.StoredProfile, 0)
	for rows.Next() {
		var (
			p        domain.StoredProfile
			name     sql.NullString
			headline sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.PostID, &p.ProfileURL, &name, &headline, &p.CreatedAt); err != nil {
			return nil, errors.NewStorageError("failed to scan profile", "list_profiles_by_post", err)
		}
		p.Name = stringPtr(name)
		p.Headline = stringPtr(headline)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to iterate profiles", "list_profiles_by_post", err)
	}

	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.ProjectID, &p.PostURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
