package service

import (
	"context"
	"strings"

	"threadpulse/internal/models"
	"threadpulse/internal/repository"
	"threadpulse/internal/validation"
)

type PostService struct {
	users repository.UserRepository
	posts repository.PostRepository
}

type CreatePostInput struct {
	UserID    string
	Content   string
	MediaURLs []string
	PostType  models.PostType
}

func NewPostService(users repository.UserRepository, posts repository.PostRepository) *PostService {
	return &PostService{users: users, posts: posts}
}

func (s *PostService) List(ctx context.Context, userID string) ([]models.Post, error) {
	return s.posts.ListByUser(ctx, userID)
}

func (s *PostService) Get(ctx context.Context, userID, postID string) (*models.Post, error) {
	return s.posts.GetByID(ctx, userID, postID)
}

// CreateDraft stores a local post that has not been published to Threads.
func (s *PostService) CreateDraft(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	postType := in.PostType
	if postType == "" {
		postType = models.PostTypeText
	}
	if !postType.Valid() {
		return nil, models.NewValidationError("Invalid post_type")
	}
	if err := validation.ValidatePostContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	mediaURLs := make([]string, 0, len(in.MediaURLs))
	for _, u := range in.MediaURLs {
		mediaURLs = append(mediaURLs, strings.TrimSpace(u))
	}
	if err := validation.ValidateMediaURLs(mediaURLs); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if _, err := s.users.EnsureUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:    in.UserID,
		Content:   in.Content,
		PostType:  postType,
		MediaURLs: mediaURLs,
		Status:    models.PostStatusDraft,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	return s.posts.Delete(ctx, userID, postID)
}
