package domain

import "time"

// ProfileRecord is the canonical form of one reactor returned by the provider.
type ProfileRecord struct {
	ProfileURL string  `json:"profileUrl"`
	Name       *string `json:"name"`
	Headline   *string `json:"headline"`
}

// StoredProfile is a ProfileRecord persisted against a post.
type StoredProfile struct {
	ID     int64 `json:"id"`
	PostID int64 `json:"postId"`
	ProfileRecord
	CreatedAt time.Time `json:"createdAt"`
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
