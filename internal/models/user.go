package models

import "time"

// User is a dashboard account. The ID is the subject issued by the external
// auth provider; the row is created the first time that subject calls the API.
type User struct {
	ID          string `gorm:"primaryKey;size:191" json:"id"`
	Email       string `gorm:"size:320" json:"email,omitempty"`
	DisplayName string `gorm:"size:255" json:"display_name,omitempty"`

	ThreadsUserID    *string `gorm:"size:64;uniqueIndex" json:"threads_user_id,omitempty"`
	ThreadsUsername  *string `gorm:"size:255" json:"threads_username,omitempty"`
	ThreadsAvatarURL *string `gorm:"type:text" json:"threads_avatar_url,omitempty"`
	// ThreadsAccessToken is never serialized.
	ThreadsAccessToken *string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Posts     []Post    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}

// HasThreadsToken reports whether the user stored a Threads access token.
func (u *User) HasThreadsToken() bool {
	return u != nil && u.ThreadsAccessToken != nil && *u.ThreadsAccessToken != ""
}

// ThreadsProfile is the cached copy of the connected account's public profile.
type ThreadsProfile struct {
	ThreadsUserID string
	Username      string
	AvatarURL     string
}

// ConnectionStatus answers "is a Threads account connected for this user".
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"profile_image_url,omitempty"`
}

// UserProfile is the dashboard profile view.
type UserProfile struct {
	User      *User `json:"user"`
	PostCount int64 `json:"post_count"`
}
