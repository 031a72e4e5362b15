package post

import (
	"context"

	"github.com/VitaminP8/blogexpress/internal/domain"
)

// PostStorage - коллекция постов с вложенными комментариями и реакциями.
// Методы возвращают storage.ErrNotFound, если пост не найден.
type PostStorage interface {
	CreatePost(ctx context.Context, p *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	// ListPosts возвращает посты с указанным статусом; пустой статус - все посты
	ListPosts(ctx context.Context, status string) ([]*domain.Post, error)
	ListPostsByIDs(ctx context.Context, ids []string) ([]*domain.Post, error)
	// UpdatePost перезаписывает title, content, status и creator (upsert по ID)
	UpdatePost(ctx context.Context, p *domain.Post) (*domain.Post, error)
	UpdatePostStatus(ctx context.Context, id, status string) error
	DeletePost(ctx context.Context, id string) error
	DeletePostsByCreator(ctx context.Context, creatorID string) error

	AddComment(ctx context.Context, postID string, c *domain.Comment) (*domain.Comment, error)
	RemoveComment(ctx context.Context, postID, commentID string) error

	AddReaction(ctx context.Context, postID string, kind domain.ReactionKind, userID string) (*domain.Reaction, error)
	RemoveReaction(ctx context.Context, postID string, kind domain.ReactionKind, reactionID string) error
	// RemoveUserReactions убирает все реакции пользователя заданного типа ($pull по user)
	RemoveUserReactions(ctx context.Context, postID string, kind domain.ReactionKind, userID string) error
}

// UserStorage - часть коллекции пользователей, нужная операциям над постами.
type UserStorage interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// ToggleFavorite добавляет пост в избранное или убирает его оттуда.
	// Возвращает true, если пост теперь в избранном.
	ToggleFavorite(ctx context.Context, userID, postID string) (bool, error)
	AddUserPost(ctx context.Context, userID, postID string) error
	RemoveUserPost(ctx context.Context, userID, postID string) error
}
