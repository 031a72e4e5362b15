package memory

import (
	"context"
	"sync"
	"time"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/google/uuid"
)

type PostMemoryStorage struct {
	mu    sync.Mutex
	posts map[string]*domain.Post
	order []string
}

func NewPostMemoryStorage() *PostMemoryStorage {
	return &PostMemoryStorage{
		posts: make(map[string]*domain.Post),
	}
}

func (s *PostMemoryStorage) CreatePost(_ context.Context, p *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	post := p.Clone()
	post.ID = uuid.NewString()
	post.CreatedAt = now
	post.UpdatedAt = now

	s.posts[post.ID] = post
	s.order = append(s.order, post.ID)

	return post.Clone(), nil
}

func (s *PostMemoryStorage) GetPostByID(_ context.Context, id string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return post.Clone(), nil
}

func (s *PostMemoryStorage) ListPosts(_ context.Context, status string) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]*domain.Post, 0, len(s.order))
	for _, id := range s.order {
		post := s.posts[id]
		if status != "" && post.Status != status {
			continue
		}
		posts = append(posts, post.Clone())
	}
	return posts, nil
}

func (s *PostMemoryStorage) ListPostsByIDs(_ context.Context, ids []string) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]*domain.Post, 0, len(ids))
	for _, id := range ids {
		if post, ok := s.posts[id]; ok {
			posts = append(posts, post.Clone())
		}
	}
	return posts, nil
}

func (s *PostMemoryStorage) UpdatePost(_ context.Context, p *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	post, exists := s.posts[p.ID]
	if !exists {
		post = &domain.Post{ID: p.ID, CreatedAt: now}
		if post.ID == "" {
			post.ID = uuid.NewString()
		}
		s.posts[post.ID] = post
		s.order = append(s.order, post.ID)
	}

	post.Title = p.Title
	post.Content = p.Content
	post.Status = p.Status
	post.CreatorID = p.CreatorID
	post.UpdatedAt = now

	return post.Clone(), nil
}

func (s *PostMemoryStorage) UpdatePostStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[id]
	if !exists {
		return storage.ErrNotFound
	}
	post.Status = status
	post.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *PostMemoryStorage) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[id]; !exists {
		return storage.ErrNotFound
	}
	s.deleteLocked(id)
	return nil
}

func (s *PostMemoryStorage) DeletePostsByCreator(_ context.Context, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range append([]string{}, s.order...) {
		if s.posts[id].CreatorID == creatorID {
			s.deleteLocked(id)
		}
	}
	return nil
}

func (s *PostMemoryStorage) deleteLocked(id string) {
	delete(s.posts, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *PostMemoryStorage) AddComment(_ context.Context, postID string, c *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	comment := domain.Comment{
		ID:     uuid.NewString(),
		UserID: c.UserID,
		Text:   c.Text,
	}
	post.Comments = append(post.Comments, comment)
	post.UpdatedAt = time.Now().UTC()

	return &comment, nil
}

func (s *PostMemoryStorage) RemoveComment(_ context.Context, postID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return storage.ErrNotFound
	}

	for i, c := range post.Comments {
		if c.ID == commentID {
			post.Comments = append(post.Comments[:i], post.Comments[i+1:]...)
			post.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *PostMemoryStorage) AddReaction(_ context.Context, postID string, kind domain.ReactionKind, userID string) (*domain.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	reaction := domain.Reaction{ID: uuid.NewString(), UserID: userID}
	list := reactions(post, kind)
	*list = append(*list, reaction)

	return &reaction, nil
}

func (s *PostMemoryStorage) RemoveReaction(_ context.Context, postID string, kind domain.ReactionKind, reactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return storage.ErrNotFound
	}

	list := reactions(post, kind)
	for i, r := range *list {
		if r.ID == reactionID {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *PostMemoryStorage) RemoveUserReactions(_ context.Context, postID string, kind domain.ReactionKind, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return storage.ErrNotFound
	}

	list := reactions(post, kind)
	kept := (*list)[:0]
	for _, r := range *list {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	*list = kept
	return nil
}

func reactions(post *domain.Post, kind domain.ReactionKind) *[]domain.Reaction {
	if kind == domain.ReactionUnlike {
		return &post.Unlikes
	}
	return &post.Likes
}
