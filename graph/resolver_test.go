package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VitaminP8/blogexpress/graph/model"
	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/VitaminP8/blogexpress/internal/auth"
	"github.com/VitaminP8/blogexpress/internal/mocks"
	"github.com/VitaminP8/blogexpress/internal/post"
	"github.com/VitaminP8/blogexpress/internal/storage/memory"
	"github.com/VitaminP8/blogexpress/internal/subscription"
	"github.com/VitaminP8/blogexpress/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	resolver *Resolver
	tokens   *auth.Tokens
	mailer   *mocks.MockMailer
}

func setupResolver(t *testing.T) *testEnv {
	t.Helper()

	logger := zaptest.NewLogger(t)
	users := memory.NewUserMemoryStorage()
	posts := memory.NewPostMemoryStorage()
	subs := subscription.NewSubscriptionManager()
	tokens := auth.NewTokens("login-secret", "reset-secret")
	mailer := mocks.NewMockMailer()

	return &testEnv{
		resolver: &Resolver{
			Users:         user.NewService(users, posts, tokens, mailer, user.Config{BcryptCost: bcrypt.MinCost}, logger),
			Posts:         post.NewService(posts, users, subs, logger),
			Subscriptions: subs,
			Logger:        logger,
		},
		tokens: tokens,
		mailer: mailer,
	}
}

// sessionContext прогоняет запрос с токеном через AuthMiddleware и возвращает его контекст.
func (e *testEnv) sessionContext(t *testing.T, token string) context.Context {
	t.Helper()

	var ctx context.Context
	h := auth.AuthMiddleware(e.tokens)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, auth.FromContext(ctx).IsAuth)
	return ctx
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) (*model.User, context.Context) {
	t.Helper()

	in := model.UserInput{Email: email, Name: "User", Password: "secret", ConfirmPassword: "secret"}
	u, err := e.resolver.Mutation().CreateUser(context.Background(), in)
	require.NoError(t, err)

	authData, err := e.resolver.Query().Login(context.Background(), email, "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, authData.UserID)

	return u, e.sessionContext(t, authData.Token)
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, code, e.Code)
}

func TestResolver_PostLifecycle(t *testing.T) {
	env := setupResolver(t)
	r := env.resolver

	a, ctxA := env.registerAndLogin(t, "a@x.com")
	_, ctxB := env.registerAndLogin(t, "b@x.com")

	created, err := r.Mutation().CreatePost(ctxA, model.PostInput{Title: "T", Content: "C", PostStatus: "public"})
	require.NoError(t, err)

	t.Run("Creator resolves to the author", func(t *testing.T) {
		creator, err := r.Post().Creator(ctxA, created)
		require.NoError(t, err)
		require.NotNil(t, creator)
		assert.Equal(t, a.ID, creator.ID)
		assert.Nil(t, creator.Password)
	})

	t.Run("Public post is readable without authentication", func(t *testing.T) {
		got, err := r.Query().GetPost(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "T", got.Title)
		assert.Equal(t, "public", got.PostStatus)

		_, err = time.Parse(timeLayout, got.CreatedAt)
		assert.NoError(t, err)
	})

	t.Run("Other user can not delete the post", func(t *testing.T) {
		_, err := r.Mutation().DeletePost(ctxB, created.ID)
		requireCode(t, err, http.StatusUnauthorized)
	})

	t.Run("User posts resolve through the field resolver", func(t *testing.T) {
		me, err := r.Query().CurrentUser(ctxA)
		require.NoError(t, err)

		posts, err := r.User().Posts(ctxA, me)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, created.ID, posts[0].ID)
	})

	t.Run("Owner deletes the post", func(t *testing.T) {
		id, err := r.Mutation().DeletePost(ctxA, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, id)

		_, err = r.Query().GetPost(context.Background(), created.ID)
		requireCode(t, err, http.StatusNotFound)
	})
}

func TestResolver_Users(t *testing.T) {
	t.Run("Registration exposes the password hash", func(t *testing.T) {
		env := setupResolver(t)
		in := model.UserInput{Email: "a@x.com", Name: "A", Password: "secret", ConfirmPassword: "secret"}

		u, err := env.resolver.Mutation().CreateUser(context.Background(), in)
		require.NoError(t, err)
		require.NotNil(t, u.Password)
		assert.NotEqual(t, "secret", *u.Password)
	})

	t.Run("Validation error carries data", func(t *testing.T) {
		env := setupResolver(t)
		in := model.UserInput{Email: "bad", Name: "A", Password: "secret", ConfirmPassword: "secret"}

		_, err := env.resolver.Mutation().CreateUser(context.Background(), in)
		requireCode(t, err, http.StatusUnprocessableEntity)
	})

	t.Run("Role updates", func(t *testing.T) {
		env := setupResolver(t)
		a, ctxA := env.registerAndLogin(t, "a@x.com")
		b, _ := env.registerAndLogin(t, "b@x.com")

		_, err := env.resolver.Mutation().AdminUpdateRoles(ctxA, b.ID, "admin")
		requireCode(t, err, http.StatusUnauthorized)

		role, err := env.resolver.Mutation().UpdateUserRole(ctxA, "admin")
		require.NoError(t, err)
		assert.Equal(t, &model.RoleData{UserID: a.ID, Role: "ADMIN"}, role)
	})

	t.Run("All users hide passwords", func(t *testing.T) {
		env := setupResolver(t)
		_, ctxA := env.registerAndLogin(t, "a@x.com")

		users, err := env.resolver.Query().AllUsers(ctxA)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Nil(t, users[0].Password)
	})
}

func TestResolver_CommentsAndReactions(t *testing.T) {
	env := setupResolver(t)
	r := env.resolver

	_, ctxA := env.registerAndLogin(t, "a@x.com")
	b, ctxB := env.registerAndLogin(t, "b@x.com")

	created, err := r.Mutation().CreatePost(ctxA, model.PostInput{Title: "T", Content: "C", PostStatus: "public"})
	require.NoError(t, err)

	t.Run("Comment is delivered to subscribers", func(t *testing.T) {
		subCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := r.Subscription().CommentAdded(subCtx, created.ID)
		require.NoError(t, err)

		comment, err := r.Mutation().AddComment(ctxB, model.CommentInput{PostID: created.ID, Text: "hello"})
		require.NoError(t, err)
		assert.Equal(t, b.ID, comment.UserID)
		assert.Equal(t, created.ID, comment.PostID)

		select {
		case got := <-events:
			assert.Equal(t, comment, got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for comment")
		}

		_, err = r.Mutation().DeleteComment(ctxA, created.ID, comment.ID)
		requireCode(t, err, http.StatusUnauthorized)

		deleted, err := r.Mutation().DeleteComment(ctxB, created.ID, comment.ID)
		require.NoError(t, err)
		assert.Equal(t, &model.DeleteCommentData{PostID: created.ID, CommentID: comment.ID}, deleted)
	})

	t.Run("Subscription channel closes with the context", func(t *testing.T) {
		subCtx, cancel := context.WithCancel(context.Background())
		events, err := r.Subscription().CommentAdded(subCtx, created.ID)
		require.NoError(t, err)

		cancel()
		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel was not closed")
		}
	})

	t.Run("Like toggles", func(t *testing.T) {
		first, err := r.Mutation().LikePost(ctxB, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, first.PostID)

		got, err := r.Query().GetPost(ctxB, created.ID)
		require.NoError(t, err)
		assert.Len(t, got.Likes, 1)

		second, err := r.Mutation().LikePost(ctxB, created.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		got, err = r.Query().GetPost(ctxB, created.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Likes)
	})

	t.Run("Status update", func(t *testing.T) {
		status, err := r.Mutation().UpdatePostStatus(ctxA, created.ID, "private")
		require.NoError(t, err)
		assert.Equal(t, &model.PostStatusData{PostID: created.ID, Status: "private"}, status)

		_, err = r.Query().GetPost(context.Background(), created.ID)
		requireCode(t, err, http.StatusUnauthorized)

		_, err = r.Subscription().CommentAdded(context.Background(), created.ID)
		requireCode(t, err, http.StatusUnauthorized)
	})
}
