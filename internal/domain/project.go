package domain

import "time"

// Project groups the posts a user has scraped.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectWithPosts is a project together with every post recorded under it.
type ProjectWithPosts struct {
	Project
	Posts []*Post `json:"posts"`
}

// Post is a LinkedIn post URL recorded under a project. PostURL is unique across all projects.
type Post struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"projectId"`
	PostURL   string    `json:"postUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
