// Package domain содержит записи, с которыми работают сервисы и хранилища.
package domain

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	StatusPublic  = "public"
	StatusPrivate = "private"
)

// User - пользователь блога. PasswordHash никогда не содержит открытый пароль.
type User struct {
	ID                   string
	Email                string
	Name                 string
	PasswordHash         string
	Role                 string
	Posts                []string // ID постов, созданных пользователем
	Favorites            []string // ID избранных постов (без каскада при удалении поста)
	PasswordResetToken   string
	PasswordResetExpires int64 // 0 - токен сброса не выдан
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasFavorite проверяет наличие поста в избранном.
func (u *User) HasFavorite(postID string) bool {
	for _, id := range u.Favorites {
		if id == postID {
			return true
		}
	}
	return false
}

// WithoutPassword возвращает копию пользователя без хэша пароля.
func (u *User) WithoutPassword() *User {
	cp := *u
	cp.PasswordHash = ""
	return &cp
}

type Post struct {
	ID        string
	Title     string
	Content   string
	Status    string
	CreatorID string
	Comments  []Comment
	Likes     []Reaction
	Unlikes   []Reaction
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindComment возвращает комментарий по ID или nil.
func (p *Post) FindComment(commentID string) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return &p.Comments[i]
		}
	}
	return nil
}

// FindReaction ищет реакцию пользователя заданного типа.
func (p *Post) FindReaction(kind ReactionKind, userID string) *Reaction {
	list := p.Likes
	if kind == ReactionUnlike {
		list = p.Unlikes
	}
	for i := range list {
		if list[i].UserID == userID {
			return &list[i]
		}
	}
	return nil
}

type Comment struct {
	ID     string
	UserID string
	Text   string
}

type ReactionKind string

const (
	ReactionLike   ReactionKind = "like"
	ReactionUnlike ReactionKind = "unlike"
)

// Opposite возвращает противоположный тип реакции.
func (k ReactionKind) Opposite() ReactionKind {
	if k == ReactionLike {
		return ReactionUnlike
	}
	return ReactionLike
}

type Reaction struct {
	ID     string
	UserID string
}

// Clone возвращает копию пользователя, не разделяющую слайсы с оригиналом.
func (u *User) Clone() *User {
	cp := *u
	cp.Posts = append([]string{}, u.Posts...)
	cp.Favorites = append([]string{}, u.Favorites...)
	return &cp
}

// Clone возвращает копию поста вместе с комментариями и реакциями.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Comments = append([]Comment{}, p.Comments...)
	cp.Likes = append([]Reaction{}, p.Likes...)
	cp.Unlikes = append([]Reaction{}, p.Unlikes...)
	return &cp
}
