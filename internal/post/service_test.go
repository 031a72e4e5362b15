package post

import (
	"context"
	"errors"
	"testing"

	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/VitaminP8/blogexpress/internal/auth"
	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/mocks"
	"github.com/VitaminP8/blogexpress/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	svc   *Service
	posts *memory.PostMemoryStorage
	users *memory.UserMemoryStorage
	subs  *mocks.MockSubscriptionManager
	alice *domain.User
	bob   *domain.User
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	posts := memory.NewPostMemoryStorage()
	users := memory.NewUserMemoryStorage()
	subs := mocks.NewMockSubscriptionManager()

	ctx := context.Background()
	alice, err := users.CreateUser(ctx, &domain.User{Email: "alice@x.io", Name: "Alice", Role: domain.RoleUser})
	require.NoError(t, err)
	bob, err := users.CreateUser(ctx, &domain.User{Email: "bob@x.io", Name: "Bob", Role: domain.RoleUser})
	require.NoError(t, err)

	return &fixture{
		svc:   NewService(posts, users, subs, zaptest.NewLogger(t)),
		posts: posts,
		users: users,
		subs:  subs,
		alice: alice,
		bob:   bob,
	}
}

func as(u *domain.User) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{IsAuth: true, UserID: u.ID, Role: u.Role})
}

func asAdmin() context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{IsAuth: true, UserID: "root", Role: domain.RoleAdmin})
}

func requireKind(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	var e *apperr.Error
	require.True(t, errors.As(err, &e), "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, e.Kind)
	if message != "" {
		assert.Equal(t, message, e.Message)
	}
}

func (f *fixture) createPost(t *testing.T, u *domain.User, status string) *domain.Post {
	t.Helper()
	p, err := f.svc.CreatePost(as(u), Input{Title: "Title", Content: "Content", Status: status})
	require.NoError(t, err)
	return p
}

func TestService_CreatePost(t *testing.T) {
	t.Run("Post is linked to the creator", func(t *testing.T) {
		f := setupService(t)

		p := f.createPost(t, f.alice, "public")
		assert.Equal(t, f.alice.ID, p.CreatorID)
		assert.Empty(t, p.Comments)

		u, err := f.users.GetUserByID(context.Background(), f.alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, u.Posts)
	})

	t.Run("Anonymous caller", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.CreatePost(context.Background(), Input{Title: "t", Content: "c", Status: "public"})
		requireKind(t, err, apperr.KindUnauthenticated, "Not authenticated!")
	})

	t.Run("Empty field", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.CreatePost(as(f.alice), Input{Title: "t", Content: "", Status: "public"})
		requireKind(t, err, apperr.KindValidation, "Invalid input.")

		var e *apperr.Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, []apperr.Message{{Message: "Please fill all inputs!"}}, e.Data)
	})

	t.Run("Caller without user record", func(t *testing.T) {
		f := setupService(t)
		ghost := &domain.User{ID: "ghost", Role: domain.RoleUser}
		_, err := f.svc.CreatePost(as(ghost), Input{Title: "t", Content: "c", Status: "public"})
		requireKind(t, err, apperr.KindUnauthorized, "Invalid user.")
	})
}

func TestService_UpdatePost(t *testing.T) {
	t.Run("Creator overwrites fields", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		updated, err := f.svc.UpdatePost(as(f.alice), p.ID, Input{Title: "New", Content: "Body", Status: "private"})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Title)
		assert.Equal(t, "private", updated.Status)

		// ссылка в списке постов пользователя не дублируется
		u, err := f.users.GetUserByID(context.Background(), f.alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, u.Posts)
	})

	t.Run("Other user is denied", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		_, err := f.svc.UpdatePost(as(f.bob), p.ID, Input{Title: "x", Content: "y", Status: "public"})
		requireKind(t, err, apperr.KindUnauthorized, "You do NOT have access to update this post!")
	})

	t.Run("Unknown post", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.UpdatePost(as(f.alice), "missing", Input{Title: "x", Content: "y", Status: "public"})
		requireKind(t, err, apperr.KindNotFound, "No post founded!")
	})
}

func TestService_Listing(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	public := f.createPost(t, f.alice, "public")
	f.createPost(t, f.alice, "PUBLIC")
	f.createPost(t, f.alice, "Public")
	private := f.createPost(t, f.alice, "private")
	bobs := f.createPost(t, f.bob, "public")

	t.Run("Public posts match status exactly", func(t *testing.T) {
		posts, err := f.svc.GetPublicPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, public.ID, posts[0].ID)
		assert.Equal(t, bobs.ID, posts[1].ID)
	})

	t.Run("All posts require authentication", func(t *testing.T) {
		_, err := f.svc.GetAllPosts(ctx)
		requireKind(t, err, apperr.KindUnauthorized, "You do not have access to all posts!")

		posts, err := f.svc.GetAllPosts(as(f.bob))
		require.NoError(t, err)
		assert.Len(t, posts, 5)
	})

	t.Run("Private posts are the caller's own posts", func(t *testing.T) {
		_, err := f.svc.GetPrivatePosts(ctx)
		requireKind(t, err, apperr.KindUnauthenticated, "")

		posts, err := f.svc.GetPrivatePosts(as(f.alice))
		require.NoError(t, err)
		assert.Len(t, posts, 4)

		posts, err = f.svc.GetPrivatePosts(as(f.bob))
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, bobs.ID, posts[0].ID)
	})

	t.Run("Private post requires authentication", func(t *testing.T) {
		_, err := f.svc.GetPost(ctx, private.ID)
		requireKind(t, err, apperr.KindUnauthenticated, "Not authenticated!")

		got, err := f.svc.GetPost(as(f.bob), private.ID)
		require.NoError(t, err)
		assert.Equal(t, private.ID, got.ID)

		got, err = f.svc.GetPost(ctx, public.ID)
		require.NoError(t, err)
		assert.Equal(t, public.ID, got.ID)
	})

	t.Run("Unknown post", func(t *testing.T) {
		_, err := f.svc.GetPost(ctx, "missing")
		requireKind(t, err, apperr.KindNotFound, "No post founded!")
	})
}

func TestService_DeletePost(t *testing.T) {
	t.Run("Non owner is denied", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		_, err := f.svc.DeletePost(as(f.bob), p.ID)
		requireKind(t, err, apperr.KindUnauthorized, "Not authorized!")

		_, err = f.posts.GetPostByID(context.Background(), p.ID)
		require.NoError(t, err)
	})

	t.Run("Owner removes post and reference", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		id, err := f.svc.DeletePost(as(f.alice), p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, id)

		_, err = f.posts.GetPostByID(context.Background(), p.ID)
		assert.Error(t, err)

		u, err := f.users.GetUserByID(context.Background(), f.alice.ID)
		require.NoError(t, err)
		assert.Empty(t, u.Posts)
	})

	t.Run("Admin deletes any post", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		_, err := f.svc.DeletePost(asAdmin(), p.ID)
		require.NoError(t, err)
	})

	t.Run("Unknown post", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.DeletePost(as(f.alice), "missing")
		requireKind(t, err, apperr.KindNotFound, "No post founded!")
	})
}

func TestService_UpdatePostStatus(t *testing.T) {
	f := setupService(t)
	p := f.createPost(t, f.alice, "public")

	t.Run("Creator changes status", func(t *testing.T) {
		id, status, err := f.svc.UpdatePostStatus(as(f.alice), p.ID, "private")
		require.NoError(t, err)
		assert.Equal(t, p.ID, id)
		assert.Equal(t, "private", status)

		stored, err := f.posts.GetPostByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "private", stored.Status)
		assert.Equal(t, "Title", stored.Title)
	})

	t.Run("Admin is not the creator", func(t *testing.T) {
		_, _, err := f.svc.UpdatePostStatus(asAdmin(), p.ID, "public")
		requireKind(t, err, apperr.KindUnauthorized, "Not authorized!")
	})
}

func TestService_Comments(t *testing.T) {
	t.Run("Comment is stored and published", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		events, cancel := f.subs.Subscribe(p.ID)
		defer cancel()

		c, err := f.svc.AddComment(as(f.bob), p.ID, "Nice post")
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, f.bob.ID, c.UserID)

		event := <-events
		assert.Equal(t, p.ID, event.PostID)
		assert.Equal(t, *c, event.Comment)
		assert.Len(t, f.subs.GetNotificationsForPost(p.ID), 1)
	})

	t.Run("Comment on unknown post", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.AddComment(as(f.bob), "missing", "text")
		requireKind(t, err, apperr.KindNotFound, "Post does not exist!")
	})

	t.Run("Post owner can not delete someone else's comment", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")
		c, err := f.svc.AddComment(as(f.bob), p.ID, "Nice post")
		require.NoError(t, err)

		err = f.svc.DeleteComment(as(f.alice), p.ID, c.ID)
		requireKind(t, err, apperr.KindUnauthorized, "Not authorized.")

		err = f.svc.DeleteComment(as(f.bob), p.ID, c.ID)
		require.NoError(t, err)

		stored, err := f.posts.GetPostByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Comments)
	})

	t.Run("Unknown comment", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")
		err := f.svc.DeleteComment(as(f.alice), p.ID, "missing")
		requireKind(t, err, apperr.KindNotFound, "This comment does not exist!")
	})
}

func TestService_Reactions(t *testing.T) {
	ctx := context.Background()

	t.Run("First time like on a post without reactions", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		r, err := f.svc.LikePost(as(f.bob), p.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)

		stored, err := f.posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, stored.Likes, 1)
		assert.Equal(t, f.bob.ID, stored.Likes[0].UserID)
	})

	t.Run("Second like removes the like", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		first, err := f.svc.LikePost(as(f.bob), p.ID)
		require.NoError(t, err)
		second, err := f.svc.LikePost(as(f.bob), p.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		stored, err := f.posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Likes)
	})

	t.Run("Like replaces unlike", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		_, err := f.svc.UnlikePost(as(f.bob), p.ID)
		require.NoError(t, err)
		_, err = f.svc.LikePost(as(f.bob), p.ID)
		require.NoError(t, err)

		stored, err := f.posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Likes, 1)
		assert.Empty(t, stored.Unlikes)
	})

	t.Run("Unlike replaces like", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		_, err := f.svc.LikePost(as(f.bob), p.ID)
		require.NoError(t, err)
		r, err := f.svc.UnlikePost(as(f.bob), p.ID)
		require.NoError(t, err)

		stored, err := f.posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Likes)
		require.Len(t, stored.Unlikes, 1)
		assert.Equal(t, r.ID, stored.Unlikes[0].ID)
		assert.Equal(t, f.bob.ID, stored.Unlikes[0].UserID)
	})

	t.Run("Second unlike removes the unlike", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		first, err := f.svc.UnlikePost(as(f.bob), p.ID)
		require.NoError(t, err)
		second, err := f.svc.UnlikePost(as(f.bob), p.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		stored, err := f.posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Unlikes)
		assert.Empty(t, stored.Likes)
	})

	t.Run("Reactions of other users are kept", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		_, err := f.svc.LikePost(as(f.alice), p.ID)
		require.NoError(t, err)
		_, err = f.svc.UnlikePost(as(f.bob), p.ID)
		require.NoError(t, err)

		stored, err := f.posts.GetPostByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Likes, 1)
		assert.Len(t, stored.Unlikes, 1)
	})

	t.Run("Unknown post", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.UnlikePost(as(f.bob), "missing")
		requireKind(t, err, apperr.KindNotFound, "Post does not exist!")
	})
}

func TestService_FavoritePost(t *testing.T) {
	ctx := context.Background()

	t.Run("Favorite twice restores membership", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		id, err := f.svc.FavoritePost(as(f.bob), p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, id)

		u, err := f.users.GetUserByID(ctx, f.bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, u.Favorites)

		_, err = f.svc.FavoritePost(as(f.bob), p.ID)
		require.NoError(t, err)

		u, err = f.users.GetUserByID(ctx, f.bob.ID)
		require.NoError(t, err)
		assert.Empty(t, u.Favorites)
	})

	t.Run("Post created during favorite is kept", func(t *testing.T) {
		f := setupService(t)
		p := f.createPost(t, f.alice, "public")

		users := &addPostBeforeToggle{UserMemoryStorage: f.users, postID: "concurrent-post"}
		svc := NewService(f.posts, users, f.subs, zaptest.NewLogger(t))

		_, err := svc.FavoritePost(as(f.bob), p.ID)
		require.NoError(t, err)

		u, err := f.users.GetUserByID(ctx, f.bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"concurrent-post"}, u.Posts)
		assert.Equal(t, []string{p.ID}, u.Favorites)
	})

	t.Run("Caller without user record", func(t *testing.T) {
		f := setupService(t)
		ghost := &domain.User{ID: "ghost", Role: domain.RoleUser}
		_, err := f.svc.FavoritePost(as(ghost), "any")
		requireKind(t, err, apperr.KindNotFound, "User does not exist!")
	})
}

// addPostBeforeToggle добавляет пост пользователю прямо перед записью избранного,
// как параллельный CreatePost того же пользователя.
type addPostBeforeToggle struct {
	*memory.UserMemoryStorage
	postID string
}

func (s *addPostBeforeToggle) ToggleFavorite(ctx context.Context, userID, postID string) (bool, error) {
	if err := s.AddUserPost(ctx, userID, s.postID); err != nil {
		return false, err
	}
	return s.UserMemoryStorage.ToggleFavorite(ctx, userID, postID)
}
