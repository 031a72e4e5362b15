package memory

import (
	"context"
	"sync"
	"time"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/google/uuid"
)

type UserMemoryStorage struct {
	mu    sync.Mutex
	users map[string]*domain.User
	order []string // ID в порядке создания, чтобы ListUsers был стабильным
}

func NewUserMemoryStorage() *UserMemoryStorage {
	return &UserMemoryStorage{
		users: make(map[string]*domain.User),
	}
}

func (s *UserMemoryStorage) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(u.Email, "") {
		return nil, storage.ErrDuplicate
	}

	now := time.Now().UTC()
	user := u.Clone()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = user
	s.order = append(s.order, user.ID)

	return user.Clone(), nil
}

func (s *UserMemoryStorage) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return user.Clone(), nil
}

func (s *UserMemoryStorage) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if s.users[id].Email == email {
			return s.users[id].Clone(), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *UserMemoryStorage) GetUserByResetToken(_ context.Context, token string, nowMillis int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		return nil, storage.ErrNotFound
	}
	for _, id := range s.order {
		user := s.users[id]
		if user.PasswordResetToken == token && user.PasswordResetExpires > nowMillis {
			return user.Clone(), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *UserMemoryStorage) ListUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*domain.User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.users[id].Clone())
	}
	return users, nil
}

func (s *UserMemoryStorage) SetProfile(_ context.Context, id, email, name, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(email, id) {
		return nil, storage.ErrDuplicate
	}

	now := time.Now().UTC()
	user, exists := s.users[id]
	if !exists {
		// upsert: записи нет - создаем с переданным ID
		user = &domain.User{ID: id, Role: domain.RoleUser, CreatedAt: now}
		s.users[id] = user
		s.order = append(s.order, id)
	}
	user.Email = email
	user.Name = name
	user.PasswordHash = passwordHash
	user.UpdatedAt = now

	return user.Clone(), nil
}

func (s *UserMemoryStorage) SetRole(_ context.Context, id, role string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	user, exists := s.users[id]
	if !exists {
		user = &domain.User{ID: id, CreatedAt: now}
		s.users[id] = user
		s.order = append(s.order, id)
	}
	user.Role = role
	user.UpdatedAt = now

	return user.Clone(), nil
}

func (s *UserMemoryStorage) SetResetToken(_ context.Context, id, token string, expires int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return storage.ErrNotFound
	}
	user.PasswordResetToken = token
	user.PasswordResetExpires = expires
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *UserMemoryStorage) SetPassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return storage.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordResetToken = ""
	user.PasswordResetExpires = 0
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *UserMemoryStorage) ToggleFavorite(_ context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return false, storage.ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()

	if user.HasFavorite(postID) {
		favorites := user.Favorites[:0]
		for _, id := range user.Favorites {
			if id != postID {
				favorites = append(favorites, id)
			}
		}
		user.Favorites = favorites
		return false, nil
	}
	user.Favorites = append(user.Favorites, postID)
	return true, nil
}

// emailTaken вызывается под s.mu
func (s *UserMemoryStorage) emailTaken(email, exceptID string) bool {
	for id, user := range s.users {
		if id != exceptID && user.Email == email {
			return true
		}
	}
	return false
}

func (s *UserMemoryStorage) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return storage.ErrNotFound
	}

	delete(s.users, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *UserMemoryStorage) AddUserPost(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return storage.ErrNotFound
	}
	user.Posts = append(user.Posts, postID)
	return nil
}

func (s *UserMemoryStorage) RemoveUserPost(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return storage.ErrNotFound
	}

	// как $pull: убираем все вхождения
	posts := user.Posts[:0]
	for _, id := range user.Posts {
		if id != postID {
			posts = append(posts, id)
		}
	}
	user.Posts = posts
	return nil
}
