// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"threadpulse/internal/models"
	"threadpulse/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	EnsureUser(ctx context.Context, id string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateThreadsProfile(ctx context.Context, id string, profile models.ThreadsProfile) error
	ConnectThreads(ctx context.Context, id, accessToken string, profile models.ThreadsProfile) error
	DisconnectThreads(ctx context.Context, id string) error
	DisconnectByThreadsUserID(ctx context.Context, threadsUserID string) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// EnsureUser creates the row for an authenticated subject on first sight and
// returns the stored user.
func (r *userRepository) EnsureUser(ctx context.Context, id string) (*models.User, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "EnsureUser", "users")
	defer span.End()
	defer observability.TrackQuery("ensure", "users")()

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&models.User{ID: id}).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer observability.TrackQuery("get", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// UpdateThreadsProfile refreshes the cached external profile fields.
func (r *userRepository) UpdateThreadsProfile(ctx context.Context, id string, profile models.ThreadsProfile) error {
	return r.updateUser(ctx, "update_profile", id, profileColumns(profile))
}

// ConnectThreads stores the token together with the profile it was verified
// against in a single UPDATE.
func (r *userRepository) ConnectThreads(ctx context.Context, id, accessToken string, profile models.ThreadsProfile) error {
	updates := profileColumns(profile)
	updates["threads_access_token"] = accessToken
	return r.updateUser(ctx, "connect", id, updates)
}

// DisconnectThreads clears the token and the external user ID.
func (r *userRepository) DisconnectThreads(ctx context.Context, id string) error {
	return r.updateUser(ctx, "disconnect", id, map[string]any{
		"threads_access_token": nil,
		"threads_user_id":      nil,
		"updated_at":           time.Now().UTC(),
	})
}

// DisconnectByThreadsUserID clears credentials for every user linked to the
// given external account and returns their IDs.
func (r *userRepository) DisconnectByThreadsUserID(ctx context.Context, threadsUserID string) ([]string, error) {
	defer observability.TrackQuery("deauthorize", "users")()

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("threads_user_id = ?", threadsUserID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	err = r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"threads_access_token": nil,
			"threads_user_id":      nil,
			"updated_at":           time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *userRepository) updateUser(ctx context.Context, op, id string, updates map[string]any) error {
	defer observability.TrackQuery(op, "users")()

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("This Threads account is already connected to another user")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func profileColumns(profile models.ThreadsProfile) map[string]any {
	return map[string]any{
		"threads_user_id":    nullIfEmpty(profile.ThreadsUserID),
		"threads_username":   nullIfEmpty(profile.Username),
		"threads_avatar_url": nullIfEmpty(profile.AvatarURL),
		"updated_at":         time.Now().UTC(),
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
