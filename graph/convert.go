package graph

import (
	"time"

	"github.com/VitaminP8/blogexpress/graph/model"
	"github.com/VitaminP8/blogexpress/internal/domain"
)

// timeLayout - ISO-8601 в UTC с миллисекундами, как toISOString
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func toUser(u *domain.User) *model.User {
	out := &model.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Favorites: append([]string{}, u.Favorites...),
		PostIDs:   append([]string{}, u.Posts...),
	}
	if u.PasswordHash != "" {
		hash := u.PasswordHash
		out.Password = &hash
	}
	return out
}

func toUsers(users []*domain.User) []*model.User {
	out := make([]*model.User, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

func toPost(p *domain.Post) *model.Post {
	out := &model.Post{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		PostStatus: p.Status,
		Comments:   make([]*model.Comment, 0, len(p.Comments)),
		Likes:      toReactions(p.Likes),
		Unlikes:    toReactions(p.Unlikes),
		CreatedAt:  formatTime(p.CreatedAt),
		UpdatedAt:  formatTime(p.UpdatedAt),
		CreatorID:  p.CreatorID,
	}
	for _, c := range p.Comments {
		out.Comments = append(out.Comments, &model.Comment{ID: c.ID, User: c.UserID, Text: c.Text})
	}
	return out
}

func toPosts(posts []*domain.Post) []*model.Post {
	out := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPost(p))
	}
	return out
}

func toReactions(rs []domain.Reaction) []*model.Reaction {
	out := make([]*model.Reaction, 0, len(rs))
	for _, r := range rs {
		out = append(out, &model.Reaction{ID: r.ID, User: r.UserID})
	}
	return out
}

func toCommentData(postID string, c *domain.Comment) *model.CommentData {
	return &model.CommentData{ID: c.ID, UserID: c.UserID, PostID: postID, Text: c.Text}
}
