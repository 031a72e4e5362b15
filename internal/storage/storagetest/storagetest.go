// Package storagetest - общий набор тестов, который проходят все реализации хранилищ
// (memory, sqlstore, mongodb).
package storagetest

import (
	"context"
	"testing"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/post"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/VitaminP8/blogexpress/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MissingID - корректный для всех хранилищ (в том числе ObjectID), но несуществующий ID.
const MissingID = "5f1d7a0e2c9b3a0001a1b2c3"

// UpsertID используется для проверки upsert несуществующей записи.
const UpsertID = "5f1d7a0e2c9b3a0001a1b2c4"

// UserStorage - пользователи со стороны обоих сервисов.
type UserStorage interface {
	user.UserStorage
	post.UserStorage
}

type Stores struct {
	Users UserStorage
	Posts post.PostStorage
}

// Factory возвращает пустые хранилища для каждого подтеста.
type Factory func(t *testing.T) Stores

func Run(t *testing.T, newStores Factory) {
	t.Run("Users", func(t *testing.T) { runUsers(t, newStores) })
	t.Run("Posts", func(t *testing.T) { runPosts(t, newStores) })
	t.Run("Reactions", func(t *testing.T) { runReactions(t, newStores) })
}

func newUser(email string) *domain.User {
	return &domain.User{
		Email:        email,
		Name:         "Name",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
	}
}

func runUsers(t *testing.T, newStores Factory) {
	ctx := context.Background()

	t.Run("Create and get user", func(t *testing.T) {
		s := newStores(t)

		created, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		byID, err := s.Users.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", byID.Email)
		assert.Equal(t, "hash", byID.PasswordHash)
		assert.Equal(t, domain.RoleUser, byID.Role)
		assert.Empty(t, byID.Posts)
		assert.Empty(t, byID.Favorites)

		byEmail, err := s.Users.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
	})

	t.Run("Missing user", func(t *testing.T) {
		s := newStores(t)

		_, err := s.Users.GetUserByID(ctx, MissingID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.Users.GetUserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, s.Users.DeleteUser(ctx, MissingID), storage.ErrNotFound)
		assert.ErrorIs(t, s.Users.AddUserPost(ctx, MissingID, MissingID), storage.ErrNotFound)
	})

	t.Run("Set profile and role of existing user", func(t *testing.T) {
		s := newStores(t)
		created, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)

		saved, err := s.Users.SetProfile(ctx, created.ID, "b@x.com", "Renamed", "new-hash")
		require.NoError(t, err)
		assert.Equal(t, "b@x.com", saved.Email)
		assert.Equal(t, domain.RoleUser, saved.Role)

		saved, err = s.Users.SetRole(ctx, created.ID, domain.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, saved.Role)

		got, err := s.Users.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "b@x.com", got.Email)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, "new-hash", got.PasswordHash)
		assert.Equal(t, domain.RoleAdmin, got.Role)
	})

	t.Run("Set profile and role insert missing user", func(t *testing.T) {
		s := newStores(t)

		saved, err := s.Users.SetProfile(ctx, UpsertID, "new@x.com", "New", "hash")
		require.NoError(t, err)
		assert.Equal(t, UpsertID, saved.ID)
		assert.Equal(t, domain.RoleUser, saved.Role)

		got, err := s.Users.GetUserByID(ctx, UpsertID)
		require.NoError(t, err)
		assert.Equal(t, "new@x.com", got.Email)
		assert.Empty(t, got.Posts)
		assert.Empty(t, got.Favorites)

		s = newStores(t)
		saved, err = s.Users.SetRole(ctx, UpsertID, "WRITER")
		require.NoError(t, err)
		assert.Equal(t, "WRITER", saved.Role)
	})

	t.Run("Email stays unique", func(t *testing.T) {
		s := newStores(t)
		_, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)
		b, err := s.Users.CreateUser(ctx, newUser("b@x.com"))
		require.NoError(t, err)

		_, err = s.Users.CreateUser(ctx, newUser("a@x.com"))
		assert.ErrorIs(t, err, storage.ErrDuplicate)

		_, err = s.Users.SetProfile(ctx, b.ID, "a@x.com", "B", "hash")
		assert.ErrorIs(t, err, storage.ErrDuplicate)

		got, err := s.Users.GetUserByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "b@x.com", got.Email)

		// собственный email можно сохранить повторно
		_, err = s.Users.SetProfile(ctx, b.ID, "b@x.com", "B2", "hash")
		assert.NoError(t, err)
	})

	t.Run("Toggle favorite", func(t *testing.T) {
		s := newStores(t)
		u, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)
		p, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "T", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)

		added, err := s.Users.ToggleFavorite(ctx, u.ID, p.ID)
		require.NoError(t, err)
		assert.True(t, added)

		got, err := s.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, got.Favorites)

		added, err = s.Users.ToggleFavorite(ctx, u.ID, p.ID)
		require.NoError(t, err)
		assert.False(t, added)

		got, err = s.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Favorites)

		_, err = s.Users.ToggleFavorite(ctx, MissingID, p.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Field updates keep post added after read", func(t *testing.T) {
		s := newStores(t)
		u, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)

		// снимок до появления поста, как у запроса, который читал пользователя раньше
		stale, err := s.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, stale.Posts)

		p, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "T", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)
		require.NoError(t, s.Users.AddUserPost(ctx, u.ID, p.ID))

		_, err = s.Users.ToggleFavorite(ctx, stale.ID, p.ID)
		require.NoError(t, err)
		_, err = s.Users.SetRole(ctx, stale.ID, domain.RoleAdmin)
		require.NoError(t, err)
		_, err = s.Users.SetProfile(ctx, stale.ID, stale.Email, "Renamed", stale.PasswordHash)
		require.NoError(t, err)
		require.NoError(t, s.Users.SetResetToken(ctx, stale.ID, "reset-token", 2000))

		got, err := s.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, got.Posts)
		assert.Equal(t, []string{p.ID}, got.Favorites)
		assert.Equal(t, domain.RoleAdmin, got.Role)
		assert.Equal(t, "Renamed", got.Name)
	})

	t.Run("Reset token lookup respects expiry", func(t *testing.T) {
		s := newStores(t)
		created, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)

		require.NoError(t, s.Users.SetResetToken(ctx, created.ID, "reset-token", 2000))

		got, err := s.Users.GetUserByResetToken(ctx, "reset-token", 1000)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		_, err = s.Users.GetUserByResetToken(ctx, "reset-token", 3000)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.Users.GetUserByResetToken(ctx, "other-token", 1000)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Set password clears reset token", func(t *testing.T) {
		s := newStores(t)
		created, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)
		require.NoError(t, s.Users.SetResetToken(ctx, created.ID, "reset-token", 2000))

		require.NoError(t, s.Users.SetPassword(ctx, created.ID, "new-hash"))

		got, err := s.Users.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)
		assert.Empty(t, got.PasswordResetToken)
		assert.Zero(t, got.PasswordResetExpires)

		_, err = s.Users.GetUserByResetToken(ctx, "reset-token", 1000)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, s.Users.SetPassword(ctx, MissingID, "hash"), storage.ErrNotFound)
		assert.ErrorIs(t, s.Users.SetResetToken(ctx, MissingID, "t", 1), storage.ErrNotFound)
	})

	t.Run("List and delete users", func(t *testing.T) {
		s := newStores(t)
		a, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)
		_, err = s.Users.CreateUser(ctx, newUser("b@x.com"))
		require.NoError(t, err)

		users, err := s.Users.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		require.NoError(t, s.Users.DeleteUser(ctx, a.ID))

		users, err = s.Users.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "b@x.com", users[0].Email)
	})

	t.Run("User post list follows add and remove", func(t *testing.T) {
		s := newStores(t)
		u, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
		require.NoError(t, err)

		p, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "T", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)
		require.NoError(t, s.Users.AddUserPost(ctx, u.ID, p.ID))

		got, err := s.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, got.Posts)

		require.NoError(t, s.Users.RemoveUserPost(ctx, u.ID, p.ID))
		require.NoError(t, s.Posts.DeletePost(ctx, p.ID))

		got, err = s.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Posts)
	})
}

func runPosts(t *testing.T, newStores Factory) {
	ctx := context.Background()

	setup := func(t *testing.T) (Stores, *domain.User) {
		s := newStores(t)
		u, err := s.Users.CreateUser(ctx, newUser("author@x.com"))
		require.NoError(t, err)
		return s, u
	}

	t.Run("Create and get post", func(t *testing.T) {
		s, u := setup(t)

		created, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "T", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.Posts.GetPostByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "T", got.Title)
		assert.Equal(t, "C", got.Content)
		assert.Equal(t, "public", got.Status)
		assert.Equal(t, u.ID, got.CreatorID)
		assert.Empty(t, got.Comments)
		assert.Empty(t, got.Likes)
		assert.Empty(t, got.Unlikes)
	})

	t.Run("Missing post", func(t *testing.T) {
		s, u := setup(t)

		_, err := s.Posts.GetPostByID(ctx, MissingID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.Posts.DeletePost(ctx, MissingID), storage.ErrNotFound)
		assert.ErrorIs(t, s.Posts.UpdatePostStatus(ctx, MissingID, "private"), storage.ErrNotFound)

		_, err = s.Posts.AddComment(ctx, MissingID, &domain.Comment{UserID: u.ID, Text: "x"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Status filter is case-sensitive", func(t *testing.T) {
		s, u := setup(t)

		for _, status := range []string{"public", "PUBLIC", "Public", "private"} {
			_, err := s.Posts.CreatePost(ctx, &domain.Post{Title: status, Content: "C", Status: status, CreatorID: u.ID})
			require.NoError(t, err)
		}

		public, err := s.Posts.ListPosts(ctx, "public")
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, "public", public[0].Title)

		all, err := s.Posts.ListPosts(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("List by IDs keeps the given order", func(t *testing.T) {
		s, u := setup(t)

		first, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "1", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)
		second, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "2", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)

		posts, err := s.Posts.ListPostsByIDs(ctx, []string{second.ID, MissingID, first.ID})
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, second.ID, posts[0].ID)
		assert.Equal(t, first.ID, posts[1].ID)

		posts, err = s.Posts.ListPostsByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("Update post and status", func(t *testing.T) {
		s, u := setup(t)
		created, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "T", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)

		updated, err := s.Posts.UpdatePost(ctx, &domain.Post{ID: created.ID, Title: "T2", Content: "C2", Status: "private", CreatorID: u.ID})
		require.NoError(t, err)
		assert.Equal(t, "T2", updated.Title)
		assert.Equal(t, "C2", updated.Content)
		assert.Equal(t, "private", updated.Status)

		require.NoError(t, s.Posts.UpdatePostStatus(ctx, created.ID, "public"))
		got, err := s.Posts.GetPostByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "public", got.Status)
		assert.Equal(t, "T2", got.Title)
	})

	t.Run("Comments are appended and removed", func(t *testing.T) {
		s, u := setup(t)
		created, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "T", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)

		c, err := s.Posts.AddComment(ctx, created.ID, &domain.Comment{UserID: u.ID, Text: "hello"})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "hello", c.Text)

		got, err := s.Posts.GetPostByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, got.Comments, 1)
		assert.Equal(t, u.ID, got.Comments[0].UserID)

		assert.ErrorIs(t, s.Posts.RemoveComment(ctx, created.ID, MissingID), storage.ErrNotFound)
		require.NoError(t, s.Posts.RemoveComment(ctx, created.ID, c.ID))

		got, err = s.Posts.GetPostByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Comments)
	})

	t.Run("Delete posts by creator", func(t *testing.T) {
		s, u := setup(t)
		other, err := s.Users.CreateUser(ctx, newUser("other@x.com"))
		require.NoError(t, err)

		_, err = s.Posts.CreatePost(ctx, &domain.Post{Title: "1", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)
		_, err = s.Posts.CreatePost(ctx, &domain.Post{Title: "2", Content: "C", Status: "public", CreatorID: u.ID})
		require.NoError(t, err)
		kept, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "3", Content: "C", Status: "public", CreatorID: other.ID})
		require.NoError(t, err)

		require.NoError(t, s.Posts.DeletePostsByCreator(ctx, u.ID))

		all, err := s.Posts.ListPosts(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, kept.ID, all[0].ID)
	})
}

func runReactions(t *testing.T, newStores Factory) {
	ctx := context.Background()

	s := newStores(t)
	u, err := s.Users.CreateUser(ctx, newUser("a@x.com"))
	require.NoError(t, err)
	p, err := s.Posts.CreatePost(ctx, &domain.Post{Title: "T", Content: "C", Status: "public", CreatorID: u.ID})
	require.NoError(t, err)

	t.Run("Add like and unlike", func(t *testing.T) {
		like, err := s.Posts.AddReaction(ctx, p.ID, domain.ReactionLike, u.ID)
		require.NoError(t, err)
		_, err = s.Posts.AddReaction(ctx, p.ID, domain.ReactionUnlike, u.ID)
		require.NoError(t, err)

		got, err := s.Posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got.Likes, 1)
		require.Len(t, got.Unlikes, 1)
		assert.Equal(t, like.ID, got.Likes[0].ID)
		assert.Equal(t, u.ID, got.Likes[0].UserID)
	})

	t.Run("Remove reaction by ID", func(t *testing.T) {
		got, err := s.Posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got.Likes, 1)

		require.NoError(t, s.Posts.RemoveReaction(ctx, p.ID, domain.ReactionLike, got.Likes[0].ID))

		got, err = s.Posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Likes)
		assert.Len(t, got.Unlikes, 1)
	})

	t.Run("Remove all reactions of a user", func(t *testing.T) {
		require.NoError(t, s.Posts.RemoveUserReactions(ctx, p.ID, domain.ReactionUnlike, u.ID))

		got, err := s.Posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Unlikes)
	})

	t.Run("Reaction on missing post", func(t *testing.T) {
		_, err := s.Posts.AddReaction(ctx, MissingID, domain.ReactionLike, u.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
