package user

import (
	"context"

	"github.com/VitaminP8/blogexpress/internal/domain"
)

// UserStorage - коллекция пользователей. Все методы возвращают storage.ErrNotFound,
// если пользователь не найден. Изменения затрагивают только свои поля, поэтому
// параллельные AddUserPost не теряются.
type UserStorage interface {
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetUserByResetToken ищет пользователя с токеном сброса, срок которого больше nowMillis
	GetUserByResetToken(ctx context.Context, token string, nowMillis int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// SetProfile меняет email, имя и хеш пароля. Если записи нет, создает ее
	// с ролью USER (upsert). Занятый другим пользователем email дает storage.ErrDuplicate.
	SetProfile(ctx context.Context, id, email, name, passwordHash string) (*domain.User, error)
	// SetRole меняет только роль, при отсутствии записи создает ее (upsert)
	SetRole(ctx context.Context, id, role string) (*domain.User, error)
	SetResetToken(ctx context.Context, id, token string, expires int64) error
	// SetPassword меняет хеш пароля и сбрасывает токен восстановления
	SetPassword(ctx context.Context, id, passwordHash string) error
	DeleteUser(ctx context.Context, id string) error
	AddUserPost(ctx context.Context, userID, postID string) error
	RemoveUserPost(ctx context.Context, userID, postID string) error
}

// PostCleaner удаляет посты пользователя при удалении аккаунта.
type PostCleaner interface {
	DeletePostsByCreator(ctx context.Context, creatorID string) error
}
