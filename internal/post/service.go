// Package post - операции над постами: создание, чтение, изменение, удаление,
// комментарии, like/unlike и избранное.
package post

import (
	"context"
	"errors"

	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/VitaminP8/blogexpress/internal/auth"
	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/VitaminP8/blogexpress/internal/subscription"
	"go.uber.org/zap"
)

// Input - поля формы поста, все обязательные.
type Input struct {
	Title   string
	Content string
	Status  string
}

type Service struct {
	posts  PostStorage
	users  UserStorage
	subs   subscription.Manager
	logger *zap.Logger
}

func NewService(posts PostStorage, users UserStorage, subs subscription.Manager, logger *zap.Logger) *Service {
	return &Service{
		posts:  posts,
		users:  users,
		subs:   subs,
		logger: logger,
	}
}

func validate(in Input) error {
	if in.Title == "" || in.Content == "" || in.Status == "" {
		return apperr.Validation("Please fill all inputs!")
	}
	return nil
}

// getPost возвращает пост или NotFound с сообщением msg.
func (s *Service) getPost(ctx context.Context, id, msg string) (*domain.Post, error) {
	p, err := s.posts.GetPostByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound(msg)
	}
	if err != nil {
		return nil, apperr.Internal("could not get post", err)
	}
	return p, nil
}

// caller возвращает запись вызывающего пользователя; нет записи - "Invalid user.".
func (s *Service) caller(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid user.")
	}
	if err != nil {
		return nil, apperr.Internal("could not get user", err)
	}
	return u, nil
}

func (s *Service) CreatePost(ctx context.Context, in Input) (*domain.Post, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	u, err := s.caller(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	created, err := s.posts.CreatePost(ctx, &domain.Post{
		Title:     in.Title,
		Content:   in.Content,
		Status:    in.Status,
		CreatorID: u.ID,
	})
	if err != nil {
		return nil, apperr.Internal("could not create post", err)
	}
	if err := s.users.AddUserPost(ctx, u.ID, created.ID); err != nil {
		return nil, apperr.Internal("could not link post to user", err)
	}

	s.logger.Info("post created", zap.String("post_id", created.ID), zap.String("user_id", u.ID))
	return created, nil
}

func (s *Service) UpdatePost(ctx context.Context, id string, in Input) (*domain.Post, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	existing, err := s.getPost(ctx, id, "No post founded!")
	if err != nil {
		return nil, err
	}
	u, err := s.caller(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	res := auth.Resource{OwnerID: existing.CreatorID, DenyMessage: "You do NOT have access to update this post!"}
	if err := auth.Authorize(actor, res, auth.ActionModify); err != nil {
		return nil, err
	}

	updated, err := s.posts.UpdatePost(ctx, &domain.Post{
		ID:        id,
		Title:     in.Title,
		Content:   in.Content,
		Status:    in.Status,
		CreatorID: u.ID,
	})
	if err != nil {
		return nil, apperr.Internal("could not update post", err)
	}

	// pull + push держат список постов пользователя без дублей
	if err := s.users.RemoveUserPost(ctx, u.ID, id); err != nil {
		return nil, apperr.Internal("could not unlink post", err)
	}
	if err := s.users.AddUserPost(ctx, u.ID, id); err != nil {
		return nil, apperr.Internal("could not link post to user", err)
	}
	return updated, nil
}

// GetAllPosts отказывает только тому, кто не администратор и не аутентифицирован.
func (s *Service) GetAllPosts(ctx context.Context) ([]*domain.Post, error) {
	if err := auth.Authorize(auth.FromContext(ctx), auth.Resource{}, auth.ActionList); err != nil {
		return nil, err
	}
	return s.list(ctx, "")
}

// GetPublicPosts возвращает посты со статусом ровно "public"; "PUBLIC" и "Public" не подходят.
func (s *Service) GetPublicPosts(ctx context.Context) ([]*domain.Post, error) {
	return s.list(ctx, domain.StatusPublic)
}

func (s *Service) list(ctx context.Context, status string) ([]*domain.Post, error) {
	posts, err := s.posts.ListPosts(ctx, status)
	if err != nil {
		return nil, apperr.Internal("could not get posts", err)
	}
	return posts, nil
}

// GetPrivatePosts возвращает все посты вызывающего пользователя, независимо от статуса.
func (s *Service) GetPrivatePosts(ctx context.Context) ([]*domain.Post, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByID(ctx, actor.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("No post founded!")
	}
	if err != nil {
		return nil, apperr.Internal("could not get user", err)
	}
	return s.ListByIDs(ctx, u.Posts)
}

// ListByIDs нужен для поля User.posts.
func (s *Service) ListByIDs(ctx context.Context, ids []string) ([]*domain.Post, error) {
	posts, err := s.posts.ListPostsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("could not get posts", err)
	}
	return posts, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	p, err := s.getPost(ctx, id, "No post founded!")
	if err != nil {
		return nil, err
	}

	res := auth.Resource{OwnerID: p.CreatorID, Private: p.Status == domain.StatusPrivate}
	if err := auth.Authorize(auth.FromContext(ctx), res, auth.ActionRead); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePost(ctx context.Context, id string) (string, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return "", err
	}

	p, err := s.getPost(ctx, id, "No post founded!")
	if err != nil {
		return "", err
	}
	if err := auth.Authorize(actor, auth.Resource{OwnerID: p.CreatorID}, auth.ActionDelete); err != nil {
		return "", err
	}

	err = s.users.RemoveUserPost(ctx, p.CreatorID, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", apperr.Internal("could not unlink post", err)
	}
	if err := s.posts.DeletePost(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", apperr.Internal("could not delete post", err)
	}

	s.logger.Info("post deleted", zap.String("post_id", id), zap.String("by", actor.UserID))
	return id, nil
}

func (s *Service) UpdatePostStatus(ctx context.Context, id, status string) (string, string, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return "", "", err
	}

	p, err := s.getPost(ctx, id, "No post founded!")
	if err != nil {
		return "", "", err
	}
	if err := auth.Authorize(actor, auth.Resource{OwnerID: p.CreatorID}, auth.ActionModify); err != nil {
		return "", "", err
	}

	if err := s.posts.UpdatePostStatus(ctx, id, status); err != nil {
		return "", "", apperr.Internal("could not update post status", err)
	}
	return id, status, nil
}

// AddComment добавляет комментарий и оповещает подписчиков поста.
func (s *Service) AddComment(ctx context.Context, postID, text string) (*domain.Comment, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}
	if _, err := s.getPost(ctx, postID, "Post does not exist!"); err != nil {
		return nil, err
	}

	c, err := s.posts.AddComment(ctx, postID, &domain.Comment{UserID: actor.UserID, Text: text})
	if err != nil {
		return nil, apperr.Internal("could not add comment", err)
	}

	if s.subs != nil {
		s.subs.Publish(&subscription.CommentEvent{PostID: postID, Comment: *c})
	}
	return c, nil
}

// DeleteComment разрешено только автору комментария, даже владелец поста не может.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID string) error {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return err
	}

	p, err := s.getPost(ctx, postID, "Post does not exist!")
	if err != nil {
		return err
	}
	c := p.FindComment(commentID)
	if c == nil {
		return apperr.NotFound("This comment does not exist!")
	}

	res := auth.Resource{OwnerID: c.UserID, DenyMessage: "Not authorized."}
	if err := auth.Authorize(actor, res, auth.ActionModify); err != nil {
		return err
	}

	if err := s.posts.RemoveComment(ctx, postID, commentID); err != nil {
		return apperr.Internal("could not delete comment", err)
	}
	return nil
}

func (s *Service) LikePost(ctx context.Context, postID string) (*domain.Reaction, error) {
	return s.toggleReaction(ctx, postID, domain.ReactionLike)
}

func (s *Service) UnlikePost(ctx context.Context, postID string) (*domain.Reaction, error) {
	return s.toggleReaction(ctx, postID, domain.ReactionUnlike)
}

// toggleReaction: повторная реакция снимает ее, новая реакция снимает противоположную.
// Возвращает добавленную или снятую реакцию.
func (s *Service) toggleReaction(ctx context.Context, postID string, kind domain.ReactionKind) (*domain.Reaction, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}

	p, err := s.getPost(ctx, postID, "Post does not exist!")
	if err != nil {
		return nil, err
	}

	if existing := p.FindReaction(kind, actor.UserID); existing != nil {
		if err := s.posts.RemoveReaction(ctx, postID, kind, existing.ID); err != nil {
			return nil, apperr.Internal("could not remove "+string(kind), err)
		}
		return existing, nil
	}

	opposite := kind.Opposite()
	if p.FindReaction(opposite, actor.UserID) != nil {
		if err := s.posts.RemoveUserReactions(ctx, postID, opposite, actor.UserID); err != nil {
			return nil, apperr.Internal("could not remove "+string(opposite), err)
		}
	}

	added, err := s.posts.AddReaction(ctx, postID, kind, actor.UserID)
	if err != nil {
		return nil, apperr.Internal("could not add "+string(kind), err)
	}
	return added, nil
}

// FavoritePost добавляет пост в избранное или убирает его оттуда.
func (s *Service) FavoritePost(ctx context.Context, postID string) (string, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return "", err
	}

	added, err := s.users.ToggleFavorite(ctx, actor.UserID, postID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.NotFound("User does not exist!")
	}
	if err != nil {
		return "", apperr.Internal("could not update favorites", err)
	}

	s.logger.Debug("favorite toggled", zap.String("post_id", postID), zap.Bool("added", added))
	return postID, nil
}
