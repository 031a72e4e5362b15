// Package model - типы GraphQL схемы. Поля привязываются к схеме по json тегам.
package model

type User struct {
	ID        string   `json:"_id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Password  *string  `json:"password"`
	Role      string   `json:"role"`
	Favorites []string `json:"favorites"`
	// PostIDs раскрывается в посты резолвером User.posts
	PostIDs []string `json:"-"`
}

type Comment struct {
	ID   string `json:"_id"`
	User string `json:"user"`
	Text string `json:"text"`
}

type Reaction struct {
	ID   string `json:"_id"`
	User string `json:"user"`
}

type Post struct {
	ID         string      `json:"_id"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	PostStatus string      `json:"postStatus"`
	Comments   []*Comment  `json:"comments"`
	Likes      []*Reaction `json:"likes"`
	Unlikes    []*Reaction `json:"unlikes"`
	CreatedAt  string      `json:"createdAt"`
	UpdatedAt  string      `json:"updatedAt"`
	// CreatorID раскрывается в пользователя резолвером Post.creator
	CreatorID string `json:"-"`
}

type AuthData struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type RoleData struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type PostStatusData struct {
	PostID string `json:"postId"`
	Status string `json:"status"`
}

type CommentData struct {
	ID     string `json:"_id"`
	UserID string `json:"userId"`
	PostID string `json:"postId"`
	Text   string `json:"text"`
}

type DeleteCommentData struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
}

type LikeData struct {
	ID     string `json:"_id"`
	PostID string `json:"postId"`
}

type UserInput struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type PostInput struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	PostStatus string `json:"postStatus"`
}

type CommentInput struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
}
