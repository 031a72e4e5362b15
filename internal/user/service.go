// Package user - операции над пользователями: регистрация, логин, профиль,
// роли, сброс пароля и удаление аккаунта.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/VitaminP8/blogexpress/internal/auth"
	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/mail"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/asaskevich/govalidator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minPasswordLength = 5

// Input - поля формы регистрации и обновления профиля.
type Input struct {
	Email           string
	Name            string
	Password        string
	ConfirmPassword string
}

// Session - результат логина.
type Session struct {
	Token  string
	UserID string
}

type Config struct {
	BcryptCost int
	MailFrom   string
	ResetURL   string // ссылка в письме: ResetURL + "/" + token
}

type Service struct {
	users  UserStorage
	posts  PostCleaner
	tokens *auth.Tokens
	mailer mail.Mailer
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(users UserStorage, posts PostCleaner, tokens *auth.Tokens, mailer mail.Mailer, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		posts:  posts,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// validate собирает все ошибки формы, а не только первую.
func validate(in Input) error {
	var messages []string
	if !govalidator.IsEmail(in.Email) {
		messages = append(messages, "E-Mail is invalid.")
	}
	if in.Name == "" {
		messages = append(messages, "Name can not be empty!")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		messages = append(messages, "Password too short!")
	}
	if len(messages) > 0 {
		return apperr.Validation(messages...)
	}
	return nil
}

// Register создает пользователя с ролью USER. В ответе остается хэш пароля.
func (s *Service) Register(ctx context.Context, in Input) (*domain.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperr.Conflict("User exists already!")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("could not check email", err)
	}

	if in.Password != in.ConfirmPassword {
		return nil, apperr.PasswordMismatch()
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Internal("could not hash password", err)
	}

	created, err := s.users.CreateUser(ctx, &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		// email заняли между проверкой и вставкой
		return nil, apperr.Conflict("User exists already!")
	}
	if err != nil {
		return nil, apperr.Internal("could not create user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", created.ID))
	return created, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("This user does not exist")
	}
	if err != nil {
		return nil, apperr.Internal("could not get user", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthorized("Password is incorrect.")
	}

	token, err := s.tokens.IssueSession(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperr.Internal("could not issue token", err)
	}
	return &Session{Token: token, UserID: u.ID}, nil
}

func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}
	u, err := s.getUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return u.WithoutPassword(), nil
}

// GetByID нужен для поля Post.creator.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.WithoutPassword(), nil
}

func (s *Service) getUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("This user does not exist")
	}
	if err != nil {
		return nil, apperr.Internal("could not get user", err)
	}
	return u, nil
}

// UpdateProfile перезаписывает email, имя и пароль вызывающего пользователя.
// Если записи нет, она создается (upsert по ID из токена).
func (s *Service) UpdateProfile(ctx context.Context, in Input) (*domain.User, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperr.PasswordMismatch()
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Internal("could not hash password", err)
	}

	saved, err := s.users.SetProfile(ctx, actor.UserID, in.Email, in.Name, hash)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return nil, apperr.Conflict("User exists already!")
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.NotFound("This user does not exist")
	case err != nil:
		return nil, apperr.Internal("could not update user", err)
	}
	return saved, nil
}

// UpdateOwnRole меняет роль вызывающего пользователя. Роль не проверяется:
// любой пользователь может назначить себе любую роль.
func (s *Service) UpdateOwnRole(ctx context.Context, role string) (*domain.User, error) {
	actor := auth.FromContext(ctx)
	if err := auth.RequireAuth(actor); err != nil {
		return nil, err
	}
	return s.setRole(ctx, actor.UserID, role)
}

func (s *Service) AdminUpdateRole(ctx context.Context, userID, role string) (*domain.User, error) {
	actor := auth.FromContext(ctx)
	if err := auth.Authorize(actor, auth.Resource{OwnerID: userID}, auth.ActionManageRoles); err != nil {
		return nil, err
	}
	return s.setRole(ctx, userID, role)
}

func (s *Service) setRole(ctx context.Context, userID, role string) (*domain.User, error) {
	saved, err := s.users.SetRole(ctx, userID, strings.ToUpper(role))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("This user does not exist")
	}
	if err != nil {
		return nil, apperr.Internal("could not update role", err)
	}

	s.logger.Info("role changed", zap.String("user_id", saved.ID), zap.String("role", saved.Role))
	return saved, nil
}

// DeleteUser удаляет аккаунт вместе с постами. Администратор может удалить любой аккаунт.
func (s *Service) DeleteUser(ctx context.Context, id string) (string, error) {
	actor := auth.FromContext(ctx)
	if err := auth.Authorize(actor, auth.Resource{OwnerID: id}, auth.ActionDelete); err != nil {
		return "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.posts.DeletePostsByCreator(gctx, id)
	})
	g.Go(func() error {
		err := s.users.DeleteUser(gctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return "", apperr.Internal("could not delete user", err)
	}

	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", actor.UserID))
	return id, nil
}

// ForgotPassword сохраняет токен сброса и отправляет ссылку на почту.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.NotFound("This user does not exist")
	}
	if err != nil {
		return "", apperr.Internal("could not get user", err)
	}

	token, err := s.tokens.IssueReset(u.ID, u.Email)
	if err != nil {
		return "", apperr.Internal("could not issue reset token", err)
	}

	// Срок хранится как (текущее время в мс) * 60 * 15, а не время + 15 минут.
	// Реальный срок действия ограничивает exp в самом токене.
	if err := s.users.SetResetToken(ctx, u.ID, token, s.now().UnixMilli()*60*15); err != nil {
		return "", apperr.Internal("could not save reset token", err)
	}

	msg := mail.Message{
		From:    s.cfg.MailFrom,
		To:      email,
		Subject: "Reset Password - BlogExpress",
		Text:    "Blog Express",
		HTML:    fmt.Sprintf("<h1>Link:</h1> %s/%s", s.cfg.ResetURL, token),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return "", apperr.Internal("could not send reset email", err)
	}

	s.logger.Info("password reset requested", zap.String("user_id", u.ID))
	return email, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password, confirmPassword string) (string, error) {
	if _, err := s.tokens.VerifyReset(token); err != nil {
		return "", apperr.TokenInvalid()
	}

	u, err := s.users.GetUserByResetToken(ctx, token, s.now().UnixMilli())
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.TokenInvalid()
	}
	if err != nil {
		return "", apperr.Internal("could not get user", err)
	}

	if password != confirmPassword {
		return "", apperr.PasswordMismatch()
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return "", apperr.Internal("could not hash password", err)
	}

	if err := s.users.SetPassword(ctx, u.ID, hash); err != nil {
		return "", apperr.Internal("could not reset password", err)
	}
	return u.Email, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	if err := auth.RequireAuth(auth.FromContext(ctx)); err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("could not get users", err)
	}
	for i, u := range users {
		users[i] = u.WithoutPassword()
	}
	return users, nil
}
