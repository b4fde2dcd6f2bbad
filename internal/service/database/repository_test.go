package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/domain"
	"github.com/kapu/post-reactors/pkg/errors"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewRepository(NewPostgresServiceFromDB(db, zap.NewNop()), zap.NewNop()), mock
}

func postColumns() []string {
	return []string{"id", "project_id", "post_url", "created_at", "updated_at"}
}

func TestRepository_ListProjects(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT id, name, created_at, updated_at FROM projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(1, "Alpha", fixedTime, fixedTime).
			AddRow(2, "Beta", fixedTime, fixedTime))

	projects, err := repo.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 2 || projects[0].Name != "Alpha" || projects[1].ID != 2 {
		t.Fatalf("unexpected projects: %+v", projects)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_CreateProjectTrimsName(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("INSERT INTO projects").
		WithArgs("Launch campaign").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(7, "Launch campaign", fixedTime, fixedTime))

	project, err := repo.CreateProject(context.Background(), "  Launch campaign \n")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if project.ID != 7 {
		t.Fatalf("expected id 7, got %d", project.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_CreateProjectRejectsBlankName(t *testing.T) {
	repo, mock := newMockRepository(t)

	if _, err := repo.CreateProject(context.Background(), "   "); !errors.Is(err, errors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no query expected: %v", err)
	}
}

func TestRepository_GetProjectMissing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM projects").WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	project, err := repo.GetProject(context.Background(), 9)
	if err != nil || project != nil {
		t.Fatalf("expected nil, nil for missing project, got %+v, %v", project, err)
	}
}

func TestRepository_GetProjectWithPosts(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM projects").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(1, "Alpha", fixedTime, fixedTime))
	mock.ExpectQuery("FROM linkedin_posts").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(postColumns()).
			AddRow(3, 1, "https://www.linkedin.com/posts/acme_2", fixedTime, fixedTime).
			AddRow(2, 1, "https://www.linkedin.com/posts/acme_1", fixedTime, fixedTime))

	result, err := repo.GetProjectWithPosts(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetProjectWithPosts() error = %v", err)
	}
	if result.Name != "Alpha" || len(result.Posts) != 2 || result.Posts[0].ID != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_FindPostByURL(t *testing.T) {
	repo, mock := newMockRepository(t)

	url := "https://www.linkedin.com/posts/acme_123"
	mock.ExpectQuery("FROM linkedin_posts").WithArgs(url).
		WillReturnRows(sqlmock.NewRows(postColumns()).AddRow(4, 1, url, fixedTime, fixedTime))
	mock.ExpectQuery("FROM linkedin_posts").WithArgs(url + "/").WillReturnError(sql.ErrNoRows)

	post, err := repo.FindPostByURL(context.Background(), url)
	if err != nil || post == nil || post.ID != 4 {
		t.Fatalf("expected post 4, got %+v, %v", post, err)
	}

	post, err = repo.FindPostByURL(context.Background(), url+"/")
	if err != nil || post != nil {
		t.Fatalf("expected exact match only, got %+v, %v", post, err)
	}
}

func TestRepository_CreatePostUpserts(t *testing.T) {
	repo, mock := newMockRepository(t)

	url := "https://www.linkedin.com/posts/acme_123"
	mock.ExpectQuery("INSERT INTO linkedin_posts .* ON CONFLICT \\(post_url\\) DO UPDATE").
		WithArgs(int64(1), url).
		WillReturnRows(sqlmock.NewRows(postColumns()).AddRow(4, 1, url, fixedTime, fixedTime))

	post, err := repo.CreatePost(context.Background(), 1, url)
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if post.ID != 4 || post.PostURL != url {
		t.Fatalf("unexpected post: %+v", post)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_CreatePostUnknownProject(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("INSERT INTO linkedin_posts").
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	_, err := repo.CreatePost(context.Background(), 99, "https://www.linkedin.com/posts/acme_1")
	if !errors.Is(err, errors.KindNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRepository_SaveProfiles(t *testing.T) {
	repo, mock := newMockRepository(t)

	headline := "CTO"
	name := "A"
	profiles := []domain.ProfileRecord{
		{ProfileURL: "https://linkedin.com/in/a", Name: &name, Headline: &headline},
		{ProfileURL: "https://linkedin.com/in/b"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO linkedin_profiles")
	prep.ExpectQuery().
		WithArgs(int64(4), "https://linkedin.com/in/a", "A", "CTO").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, fixedTime))
	prep.ExpectQuery().
		WithArgs(int64(4), "https://linkedin.com/in/b", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, fixedTime))
	mock.ExpectCommit()

	saved, err := repo.SaveProfiles(context.Background(), 4, profiles)
	if err != nil {
		t.Fatalf("SaveProfiles() error = %v", err)
	}
	if len(saved) != 2 || saved[0].ID != 10 || saved[1].PostID != 4 {
		t.Fatalf("unexpected saved profiles: %+v", saved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_SaveProfilesEmpty(t *testing.T) {
	repo, mock := newMockRepository(t)

	saved, err := repo.SaveProfiles(context.Background(), 4, nil)
	if err != nil {
		t.Fatalf("SaveProfiles() error = %v", err)
	}
	if saved == nil || len(saved) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", saved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no statements expected: %v", err)
	}
}

func TestRepository_SaveProfilesRollsBack(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO linkedin_profiles")
	prep.ExpectQuery().WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.SaveProfiles(context.Background(), 4, []domain.ProfileRecord{{ProfileURL: "https://linkedin.com/in/a"}})
	if !errors.Is(err, errors.KindStorage) {
		t.Fatalf("expected STORAGE_ERROR, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_ListProfilesByPost(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM linkedin_profiles").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "profile_url", "name", "headline", "created_at"}).
			AddRow(10, 4, "https://linkedin.com/in/a", "A", nil, fixedTime))

	profiles, err := repo.ListProfilesByPost(context.Background(), 4)
	if err != nil {
		t.Fatalf("ListProfilesByPost() error = %v", err)
	}
	if len(profiles) != 1 || domain.Deref(profiles[0].Name) != "A" || profiles[0].Headline != nil {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
}
