package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/VitaminP8/blogexpress/models"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// UserStorage хранит пользователей в таблице users, избранное - в favorites.
// Список постов пользователя не хранится отдельно и строится по posts.creator_id.
type UserStorage struct {
	db *gorm.DB
}

func NewUserStorage(db *gorm.DB) *UserStorage {
	return &UserStorage{db: db}
}

func (s *UserStorage) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := toUserRow(u)
	row.ID = uuid.NewString()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, postID := range u.Favorites {
			if err := tx.Create(&models.Favorite{UserID: row.ID, PostID: postID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return nil, storage.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	return s.GetUserByID(ctx, row.ID)
}

func (s *UserStorage) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	return s.findOne(s.db.Where("id = ?", id))
}

func (s *UserStorage) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.findOne(s.db.Where("email = ?", email))
}

func (s *UserStorage) GetUserByResetToken(_ context.Context, token string, nowMillis int64) (*domain.User, error) {
	if token == "" {
		return nil, storage.ErrNotFound
	}
	return s.findOne(s.db.Where("password_reset_token = ? AND password_reset_expires > ?", token, nowMillis))
}

func (s *UserStorage) findOne(query *gorm.DB) (*domain.User, error) {
	var row models.User
	err := query.First(&row).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get user: %w", err)
	}

	user := toUserDomain(row)
	if err := s.fillRelations(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserStorage) fillRelations(user *domain.User) error {
	var postIDs []string
	err := s.db.Model(&models.Post{}).Where("creator_id = ?", user.ID).Order("created_at").Pluck("id", &postIDs).Error
	if err != nil {
		return fmt.Errorf("could not get user posts: %w", err)
	}

	var favorites []string
	err = s.db.Model(&models.Favorite{}).Where("user_id = ?", user.ID).Order("created_at").Pluck("post_id", &favorites).Error
	if err != nil {
		return fmt.Errorf("could not get user favorites: %w", err)
	}

	user.Posts = append([]string{}, postIDs...)
	user.Favorites = append([]string{}, favorites...)
	return nil
}

func (s *UserStorage) ListUsers(_ context.Context) ([]*domain.User, error) {
	var rows []models.User
	if err := s.db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not get users: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		user := toUserDomain(row)
		if err := s.fillRelations(user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *UserStorage) SetProfile(ctx context.Context, id, email, name, passwordHash string) (*domain.User, error) {
	err := s.upsert(id, map[string]interface{}{
		"email":    email,
		"name":     name,
		"password": passwordHash,
	}, models.User{ID: id, Email: email, Name: name, Password: passwordHash, Role: domain.RoleUser})
	if err != nil {
		return nil, fmt.Errorf("could not save user profile: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *UserStorage) SetRole(ctx context.Context, id, role string) (*domain.User, error) {
	err := s.upsert(id, map[string]interface{}{"role": role}, models.User{ID: id, Role: role})
	if err != nil {
		return nil, fmt.Errorf("could not save user role: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// upsert обновляет только переданные колонки, а при отсутствии строки создает row.
func (s *UserStorage) upsert(id string, fields map[string]interface{}, row models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.User{}, id)
		if err != nil {
			return err
		}
		if found {
			err = tx.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
		} else {
			err = tx.Create(&row).Error
		}
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return err
	})
}

func (s *UserStorage) SetResetToken(_ context.Context, id, token string, expires int64) error {
	return s.update(id, map[string]interface{}{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	})
}

func (s *UserStorage) SetPassword(_ context.Context, id, passwordHash string) error {
	return s.update(id, map[string]interface{}{
		"password":               passwordHash,
		"password_reset_token":   "",
		"password_reset_expires": 0,
	})
}

func (s *UserStorage) update(id string, fields map[string]interface{}) error {
	res := s.db.Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("could not update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// RowsAffected бывает 0 и когда значения не изменились
		return s.requireUser(id)
	}
	return nil
}

// ToggleFavorite удаляет строку favorites, а если ее не было - вставляет.
func (s *UserStorage) ToggleFavorite(_ context.Context, userID, postID string) (bool, error) {
	var added bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.User{}, userID)
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrNotFound
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Create(&models.Favorite{UserID: userID, PostID: postID}).Error
	})
	if errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("could not toggle favorite: %w", err)
	}
	return added, nil
}

func (s *UserStorage) DeleteUser(_ context.Context, id string) error {
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("could not delete user: %w", err)
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddUserPost только проверяет пользователя: связь уже записана в posts.creator_id.
func (s *UserStorage) AddUserPost(_ context.Context, userID, _ string) error {
	return s.requireUser(userID)
}

// RemoveUserPost - см. AddUserPost; связь исчезает вместе со строкой поста.
func (s *UserStorage) RemoveUserPost(_ context.Context, userID, _ string) error {
	return s.requireUser(userID)
}

func (s *UserStorage) requireUser(id string) error {
	found, err := exists(s.db, &models.User{}, id)
	if err != nil {
		return fmt.Errorf("could not get user: %w", err)
	}
	if !found {
		return storage.ErrNotFound
	}
	return nil
}

func toUserRow(u *domain.User) models.User {
	return models.User{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		Password:             u.PasswordHash,
		Role:                 u.Role,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
	}
}

func toUserDomain(row models.User) *domain.User {
	return &domain.User{
		ID:                   row.ID,
		Email:                row.Email,
		Name:                 row.Name,
		PasswordHash:         row.Password,
		Role:                 row.Role,
		PasswordResetToken:   row.PasswordResetToken,
		PasswordResetExpires: row.PasswordResetExpires,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
}
