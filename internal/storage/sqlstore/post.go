package sqlstore

import (
	"context"
	"fmt"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/VitaminP8/blogexpress/models"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

type PostStorage struct {
	db *gorm.DB
}

func NewPostStorage(db *gorm.DB) *PostStorage {
	return &PostStorage{db: db}
}

func byCreatedAt(db *gorm.DB) *gorm.DB {
	return db.Order("created_at")
}

func (s *PostStorage) withRelations() *gorm.DB {
	return s.db.Preload("Comments", byCreatedAt).Preload("Reactions", byCreatedAt)
}

func (s *PostStorage) CreatePost(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	row := models.Post{
		ID:        uuid.NewString(),
		Title:     p.Title,
		Content:   p.Content,
		Status:    p.Status,
		CreatorID: p.CreatorID,
	}

	if err := s.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("could not create post: %w", err)
	}

	return s.GetPostByID(ctx, row.ID)
}

func (s *PostStorage) GetPostByID(_ context.Context, id string) (*domain.Post, error) {
	var row models.Post
	err := s.withRelations().Where("id = ?", id).First(&row).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get post by id: %w", err)
	}
	return toPostDomain(row), nil
}

func (s *PostStorage) ListPosts(_ context.Context, status string) ([]*domain.Post, error) {
	query := s.withRelations().Order("created_at")
	if status != "" {
		query = query.Where("post_status = ?", status)
	}

	var rows []models.Post
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not get posts: %w", err)
	}

	posts := make([]*domain.Post, 0, len(rows))
	for _, row := range rows {
		// mysql сравнивает строки без учета регистра, статус проверяем еще раз
		if status != "" && row.Status != status {
			continue
		}
		posts = append(posts, toPostDomain(row))
	}
	return posts, nil
}

func (s *PostStorage) ListPostsByIDs(_ context.Context, ids []string) ([]*domain.Post, error) {
	if len(ids) == 0 {
		return []*domain.Post{}, nil
	}

	var rows []models.Post
	if err := s.withRelations().Where("id IN (?)", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not get posts: %w", err)
	}

	byID := make(map[string]models.Post, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	posts := make([]*domain.Post, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			posts = append(posts, toPostDomain(row))
		}
	}
	return posts, nil
}

func (s *PostStorage) UpdatePost(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.Post{}, id)
		if err != nil {
			return err
		}
		if !found {
			return tx.Create(&models.Post{
				ID:        id,
				Title:     p.Title,
				Content:   p.Content,
				Status:    p.Status,
				CreatorID: p.CreatorID,
			}).Error
		}
		return tx.Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
			"title":       p.Title,
			"content":     p.Content,
			"post_status": p.Status,
			"creator_id":  p.CreatorID,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("could not update post: %w", err)
	}

	return s.GetPostByID(ctx, id)
}

func (s *PostStorage) UpdatePostStatus(_ context.Context, id, status string) error {
	if err := s.requirePost(s.db, id); err != nil {
		return err
	}
	err := s.db.Model(&models.Post{}).Where("id = ?", id).Update("post_status", status).Error
	if err != nil {
		return fmt.Errorf("could not update post status: %w", err)
	}
	return nil
}

func (s *PostStorage) DeletePost(_ context.Context, id string) error {
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, []string{id}); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("could not delete post: %w", err)
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostStorage) DeletePostsByCreator(_ context.Context, creatorID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Post{}).Where("creator_id = ?", creatorID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := deleteChildren(tx, ids); err != nil {
			return err
		}
		return tx.Where("id IN (?)", ids).Delete(&models.Post{}).Error
	})
	if err != nil {
		return fmt.Errorf("could not delete posts of user %s: %w", creatorID, err)
	}
	return nil
}

// deleteChildren удаляет комментарии и реакции постов; избранное не трогаем.
func deleteChildren(tx *gorm.DB, postIDs []string) error {
	if err := tx.Where("post_id IN (?)", postIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("post_id IN (?)", postIDs).Delete(&models.Reaction{}).Error
}

func (s *PostStorage) AddComment(_ context.Context, postID string, c *domain.Comment) (*domain.Comment, error) {
	if err := s.requirePost(s.db, postID); err != nil {
		return nil, err
	}

	row := models.Comment{
		ID:     uuid.NewString(),
		PostID: postID,
		UserID: c.UserID,
		Text:   c.Text,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("could not create comment: %w", err)
	}

	return &domain.Comment{ID: row.ID, UserID: row.UserID, Text: row.Text}, nil
}

func (s *PostStorage) RemoveComment(_ context.Context, postID, commentID string) error {
	res := s.db.Where("id = ? AND post_id = ?", commentID, postID).Delete(&models.Comment{})
	if res.Error != nil {
		return fmt.Errorf("could not delete comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostStorage) AddReaction(_ context.Context, postID string, kind domain.ReactionKind, userID string) (*domain.Reaction, error) {
	if err := s.requirePost(s.db, postID); err != nil {
		return nil, err
	}

	row := models.Reaction{
		ID:     uuid.NewString(),
		PostID: postID,
		UserID: userID,
		Kind:   string(kind),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("could not create %s: %w", kind, err)
	}

	return &domain.Reaction{ID: row.ID, UserID: row.UserID}, nil
}

func (s *PostStorage) RemoveReaction(_ context.Context, postID string, kind domain.ReactionKind, reactionID string) error {
	res := s.db.Where("id = ? AND post_id = ? AND kind = ?", reactionID, postID, string(kind)).Delete(&models.Reaction{})
	if res.Error != nil {
		return fmt.Errorf("could not delete %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostStorage) RemoveUserReactions(_ context.Context, postID string, kind domain.ReactionKind, userID string) error {
	if err := s.requirePost(s.db, postID); err != nil {
		return err
	}
	err := s.db.Where("post_id = ? AND kind = ? AND user_id = ?", postID, string(kind), userID).Delete(&models.Reaction{}).Error
	if err != nil {
		return fmt.Errorf("could not delete %ss of user: %w", kind, err)
	}
	return nil
}

func (s *PostStorage) requirePost(db *gorm.DB, id string) error {
	found, err := exists(db, &models.Post{}, id)
	if err != nil {
		return fmt.Errorf("could not get post: %w", err)
	}
	if !found {
		return storage.ErrNotFound
	}
	return nil
}

func toPostDomain(row models.Post) *domain.Post {
	post := &domain.Post{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		Status:    row.Status,
		CreatorID: row.CreatorID,
		Comments:  make([]domain.Comment, 0, len(row.Comments)),
		Likes:     []domain.Reaction{},
		Unlikes:   []domain.Reaction{},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	for _, c := range row.Comments {
		post.Comments = append(post.Comments, domain.Comment{ID: c.ID, UserID: c.UserID, Text: c.Text})
	}
	for _, r := range row.Reactions {
		reaction := domain.Reaction{ID: r.ID, UserID: r.UserID}
		if domain.ReactionKind(r.Kind) == domain.ReactionUnlike {
			post.Unlikes = append(post.Unlikes, reaction)
		} else {
			post.Likes = append(post.Likes, reaction)
		}
	}
	return post
}
