// Package models описывает таблицы SQL хранилища (jinzhu/gorm).
package models

import "time"

type User struct {
	ID                   string `gorm:"primary_key;type:varchar(36)"`
	Email                string `gorm:"type:varchar(255);unique_index;not null"`
	Name                 string
	Password             string
	Role                 string `gorm:"type:varchar(64)"`
	PasswordResetToken   string `gorm:"type:varchar(512);index"`
	PasswordResetExpires int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Favorite - пост в избранном пользователя. Внешнего ключа на posts нет:
// при удалении поста избранное не чистится.
type Favorite struct {
	UserID    string `gorm:"primary_key;type:varchar(36)"`
	PostID    string `gorm:"primary_key;type:varchar(36)"`
	CreatedAt time.Time
}

type Post struct {
	ID        string `gorm:"primary_key;type:varchar(36)"`
	Title     string
	Content   string     `gorm:"type:text"`
	Status    string     `gorm:"column:post_status;type:varchar(64);index"`
	CreatorID string     `gorm:"type:varchar(36);index"`
	Comments  []Comment  `gorm:"foreignkey:PostID"`
	Reactions []Reaction `gorm:"foreignkey:PostID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Comment struct {
	ID        string `gorm:"primary_key;type:varchar(36)"`
	PostID    string `gorm:"type:varchar(36);index"`
	UserID    string `gorm:"type:varchar(36)"`
	Text      string `gorm:"type:text"`
	CreatedAt time.Time
}

// Reaction - like или unlike пользователя, вид хранится в Kind.
type Reaction struct {
	ID        string `gorm:"primary_key;type:varchar(36)"`
	PostID    string `gorm:"type:varchar(36);index"`
	UserID    string `gorm:"type:varchar(36)"`
	Kind      string `gorm:"type:varchar(16)"`
	CreatedAt time.Time
}

// All - модели для AutoMigrate.
func All() []interface{} {
	return []interface{}{&User{}, &Favorite{}, &Post{}, &Comment{}, &Reaction{}}
}
