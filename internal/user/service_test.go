package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/VitaminP8/blogexpress/internal/auth"
	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/mocks"
	"github.com/VitaminP8/blogexpress/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc    *Service
	users  *memory.UserMemoryStorage
	posts  *memory.PostMemoryStorage
	mailer *mocks.MockMailer
	tokens *auth.Tokens
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	users := memory.NewUserMemoryStorage()
	posts := memory.NewPostMemoryStorage()
	mailer := mocks.NewMockMailer()
	tokens := auth.NewTokens("login-secret", "reset-secret")

	svc := NewService(users, posts, tokens, mailer, Config{
		BcryptCost: bcrypt.MinCost,
		MailFrom:   "noreply@blogexpress.test",
		ResetURL:   "http://localhost:3000/reset",
	}, zap.NewNop())

	return &fixture{svc: svc, users: users, posts: posts, mailer: mailer, tokens: tokens}
}

func validInput(email string) Input {
	return Input{Email: email, Name: "Alice", Password: "secret1", ConfirmPassword: "secret1"}
}

func as(id, role string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{IsAuth: true, UserID: id, Role: role})
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	var e *apperr.Error
	require.True(t, errors.As(err, &e), "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, e.Kind)
	return e
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates user with USER role and hashed password", func(t *testing.T) {
		f := setupService(t)

		u, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, domain.RoleUser, u.Role)
		assert.NotEqual(t, "secret1", u.PasswordHash)
		assert.True(t, auth.CheckPassword(u.PasswordHash, "secret1"))
	})

	t.Run("Invalid email is rejected", func(t *testing.T) {
		f := setupService(t)

		in := validInput("not-an-email")
		_, err := f.svc.Register(ctx, in)
		e := requireKind(t, err, apperr.KindValidation)
		assert.Equal(t, 422, e.Code)
		assert.Equal(t, "Invalid input.", e.Message)
		assert.Equal(t, []apperr.Message{{Message: "E-Mail is invalid."}}, e.Data)
	})

	t.Run("All validation errors are collected", func(t *testing.T) {
		f := setupService(t)

		_, err := f.svc.Register(ctx, Input{Email: "bad", Name: "", Password: "123"})
		e := requireKind(t, err, apperr.KindValidation)
		assert.Len(t, e.Data, 3)
	})

	t.Run("Four character password is too short", func(t *testing.T) {
		f := setupService(t)

		in := validInput("a@x.io")
		in.Password, in.ConfirmPassword = "abcd", "abcd"
		_, err := f.svc.Register(ctx, in)
		e := requireKind(t, err, apperr.KindValidation)
		assert.Equal(t, []apperr.Message{{Message: "Password too short!"}}, e.Data)
	})

	t.Run("Duplicate email returns conflict", func(t *testing.T) {
		f := setupService(t)

		_, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)

		_, err = f.svc.Register(ctx, validInput("a@x.io"))
		e := requireKind(t, err, apperr.KindConflict)
		assert.Equal(t, 409, e.Code)
		assert.Equal(t, "User exists already!", e.Message)
	})

	t.Run("Password confirmation must match", func(t *testing.T) {
		f := setupService(t)

		in := validInput("a@x.io")
		in.ConfirmPassword = "other1"
		_, err := f.svc.Register(ctx, in)
		e := requireKind(t, err, apperr.KindMismatch)
		assert.Equal(t, "Password does NOT match!", e.Message)
		assert.Zero(t, e.Code)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	u, err := f.svc.Register(ctx, validInput("a@x.io"))
	require.NoError(t, err)

	t.Run("Returns token with user claims", func(t *testing.T) {
		before := time.Now()
		session, err := f.svc.Login(ctx, "a@x.io", "secret1")
		require.NoError(t, err)
		assert.Equal(t, u.ID, session.UserID)

		claims, err := f.tokens.ParseSession(session.Token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
		assert.Equal(t, "a@x.io", claims.Email)
		assert.Equal(t, domain.RoleUser, claims.Role)
		assert.WithinDuration(t, before.Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "a@x.io", "wrong-password")
		e := requireKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, 401, e.Code)
		assert.Equal(t, "Password is incorrect.", e.Message)
	})

	t.Run("Unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "nobody@x.io", "secret1")
		e := requireKind(t, err, apperr.KindNotFound)
		assert.Equal(t, "This user does not exist", e.Message)
	})
}

func TestService_CurrentUser(t *testing.T) {
	f := setupService(t)
	u, err := f.svc.Register(context.Background(), validInput("a@x.io"))
	require.NoError(t, err)

	t.Run("Anonymous caller", func(t *testing.T) {
		_, err := f.svc.CurrentUser(context.Background())
		e := requireKind(t, err, apperr.KindUnauthenticated)
		assert.Equal(t, "Not authenticated!", e.Message)
	})

	t.Run("Password is not exposed", func(t *testing.T) {
		got, err := f.svc.CurrentUser(as(u.ID, domain.RoleUser))
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Empty(t, got.PasswordHash)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	t.Run("Requires authentication before validation", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.UpdateProfile(context.Background(), Input{})
		requireKind(t, err, apperr.KindUnauthenticated)
	})

	t.Run("Short password is rejected", func(t *testing.T) {
		f := setupService(t)
		u, err := f.svc.Register(context.Background(), validInput("a@x.io"))
		require.NoError(t, err)

		in := validInput("a@x.io")
		in.Password, in.ConfirmPassword = "abc", "abc"
		_, err = f.svc.UpdateProfile(as(u.ID, domain.RoleUser), in)
		requireKind(t, err, apperr.KindValidation)
	})

	t.Run("Overwrites profile and password", func(t *testing.T) {
		f := setupService(t)
		u, err := f.svc.Register(context.Background(), validInput("a@x.io"))
		require.NoError(t, err)

		in := Input{Email: "b@x.io", Name: "Bob", Password: "newpass", ConfirmPassword: "newpass"}
		updated, err := f.svc.UpdateProfile(as(u.ID, domain.RoleUser), in)
		require.NoError(t, err)
		assert.Equal(t, u.ID, updated.ID)
		assert.Equal(t, "b@x.io", updated.Email)
		assert.Equal(t, "Bob", updated.Name)

		_, err = f.svc.Login(context.Background(), "b@x.io", "newpass")
		require.NoError(t, err)
	})

	t.Run("Email of another user returns conflict", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.Register(context.Background(), validInput("a@x.io"))
		require.NoError(t, err)
		b, err := f.svc.Register(context.Background(), validInput("b@x.io"))
		require.NoError(t, err)

		_, err = f.svc.UpdateProfile(as(b.ID, domain.RoleUser), validInput("a@x.io"))
		e := requireKind(t, err, apperr.KindConflict)
		assert.Equal(t, 409, e.Code)
		assert.Equal(t, "User exists already!", e.Message)

		stored, err := f.users.GetUserByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, "b@x.io", stored.Email)
	})

	t.Run("Missing record is created", func(t *testing.T) {
		f := setupService(t)

		updated, err := f.svc.UpdateProfile(as("ghost", domain.RoleUser), validInput("g@x.io"))
		require.NoError(t, err)
		assert.Equal(t, "ghost", updated.ID)
		assert.Equal(t, domain.RoleUser, updated.Role)
	})
}

func TestService_Roles(t *testing.T) {
	ctx := context.Background()

	t.Run("Any user can grant themselves any role", func(t *testing.T) {
		f := setupService(t)
		u, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)

		updated, err := f.svc.UpdateOwnRole(as(u.ID, domain.RoleUser), "admin")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, updated.Role)
	})

	t.Run("Admin changes role of another user", func(t *testing.T) {
		f := setupService(t)
		a, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)
		b, err := f.svc.Register(ctx, validInput("b@x.io"))
		require.NoError(t, err)

		updated, err := f.svc.AdminUpdateRole(as(a.ID, domain.RoleAdmin), b.ID, "moderator")
		require.NoError(t, err)
		assert.Equal(t, "MODERATOR", updated.Role)
	})

	t.Run("Post created during role change is kept", func(t *testing.T) {
		f := setupService(t)
		u, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)

		users := &addPostBeforeRole{UserMemoryStorage: f.users, postID: "concurrent-post"}
		svc := NewService(users, f.posts, f.tokens, f.mailer, Config{BcryptCost: bcrypt.MinCost}, zap.NewNop())

		_, err = svc.UpdateOwnRole(as(u.ID, domain.RoleUser), "admin")
		require.NoError(t, err)

		stored, err := f.users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, stored.Role)
		assert.Equal(t, []string{"concurrent-post"}, stored.Posts)
	})

	t.Run("Non admin can not change role of another user", func(t *testing.T) {
		f := setupService(t)
		a, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)
		b, err := f.svc.Register(ctx, validInput("b@x.io"))
		require.NoError(t, err)

		_, err = f.svc.AdminUpdateRole(as(a.ID, domain.RoleUser), b.ID, "admin")
		requireKind(t, err, apperr.KindUnauthorized)

		stored, err := f.users.GetUserByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, stored.Role)
	})
}

func TestService_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes user with all of their posts", func(t *testing.T) {
		f := setupService(t)
		a, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)
		b, err := f.svc.Register(ctx, validInput("b@x.io"))
		require.NoError(t, err)

		_, err = f.posts.CreatePost(ctx, &domain.Post{Title: "t", Content: "c", Status: "public", CreatorID: a.ID})
		require.NoError(t, err)
		other, err := f.posts.CreatePost(ctx, &domain.Post{Title: "t", Content: "c", Status: "public", CreatorID: b.ID})
		require.NoError(t, err)

		id, err := f.svc.DeleteUser(as(a.ID, domain.RoleUser), a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, id)

		_, err = f.users.GetUserByID(ctx, a.ID)
		assert.Error(t, err)

		left, err := f.posts.ListPosts(ctx, "")
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, other.ID, left[0].ID)
	})

	t.Run("Other users can not delete account", func(t *testing.T) {
		f := setupService(t)
		a, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)

		_, err = f.svc.DeleteUser(as("someone-else", domain.RoleUser), a.ID)
		e := requireKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, 401, e.Code)
	})

	t.Run("Admin can delete any account", func(t *testing.T) {
		f := setupService(t)
		a, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)

		_, err = f.svc.DeleteUser(as("root", domain.RoleAdmin), a.ID)
		require.NoError(t, err)
	})
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("Forgot and reset flow", func(t *testing.T) {
		f := setupService(t)
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return now }

		u, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)

		email, err := f.svc.ForgotPassword(ctx, "a@x.io")
		require.NoError(t, err)
		assert.Equal(t, "a@x.io", email)

		stored, err := f.users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotEmpty(t, stored.PasswordResetToken)
		assert.Equal(t, now.UnixMilli()*60*15, stored.PasswordResetExpires)

		msg := f.mailer.Last()
		require.NotNil(t, msg)
		assert.Equal(t, "a@x.io", msg.To)
		assert.Equal(t, "Reset Password - BlogExpress", msg.Subject)
		assert.Contains(t, msg.HTML, "http://localhost:3000/reset/"+stored.PasswordResetToken)

		got, err := f.svc.ResetPassword(ctx, stored.PasswordResetToken, "brand-new", "brand-new")
		require.NoError(t, err)
		assert.Equal(t, "a@x.io", got)

		_, err = f.svc.Login(ctx, "a@x.io", "brand-new")
		require.NoError(t, err)

		stored, err = f.users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.PasswordResetToken)
	})

	t.Run("Unknown email", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.ForgotPassword(ctx, "nobody@x.io")
		requireKind(t, err, apperr.KindNotFound)
		assert.Empty(t, f.mailer.Sent())
	})

	t.Run("Garbage token", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.ResetPassword(ctx, "garbage", "brand-new", "brand-new")
		e := requireKind(t, err, apperr.KindTokenInvalid)
		assert.Equal(t, 400, e.Code)
	})

	t.Run("Valid token that is not stored", func(t *testing.T) {
		f := setupService(t)
		u, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)

		token, err := f.tokens.IssueReset(u.ID, u.Email)
		require.NoError(t, err)

		_, err = f.svc.ResetPassword(ctx, token, "brand-new", "brand-new")
		requireKind(t, err, apperr.KindTokenInvalid)
	})

	t.Run("Mismatched confirmation", func(t *testing.T) {
		f := setupService(t)
		_, err := f.svc.Register(ctx, validInput("a@x.io"))
		require.NoError(t, err)
		_, err = f.svc.ForgotPassword(ctx, "a@x.io")
		require.NoError(t, err)

		stored, err := f.users.GetUserByEmail(ctx, "a@x.io")
		require.NoError(t, err)

		_, err = f.svc.ResetPassword(ctx, stored.PasswordResetToken, "brand-new", "other")
		requireKind(t, err, apperr.KindMismatch)
	})
}

func TestService_ListUsers(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	a, err := f.svc.Register(ctx, validInput("a@x.io"))
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, validInput("b@x.io"))
	require.NoError(t, err)

	t.Run("Anonymous caller", func(t *testing.T) {
		_, err := f.svc.ListUsers(ctx)
		requireKind(t, err, apperr.KindUnauthenticated)
	})

	t.Run("Passwords are stripped", func(t *testing.T) {
		users, err := f.svc.ListUsers(as(a.ID, domain.RoleUser))
		require.NoError(t, err)
		require.Len(t, users, 2)
		for _, u := range users {
			assert.Empty(t, u.PasswordHash)
		}
	})
}

// addPostBeforeRole добавляет пост пользователю прямо перед сменой роли,
// как параллельный CreatePost того же пользователя.
type addPostBeforeRole struct {
	*memory.UserMemoryStorage
	postID string
}

func (s *addPostBeforeRole) SetRole(ctx context.Context, id, role string) (*domain.User, error) {
	if err := s.AddUserPost(ctx, id, s.postID); err != nil {
		return nil, err
	}
	return s.UserMemoryStorage.SetRole(ctx, id, role)
}
