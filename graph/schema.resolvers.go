package graph

import (
	"context"

	"github.com/VitaminP8/blogexpress/graph/model"
	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/VitaminP8/blogexpress/internal/post"
	"github.com/VitaminP8/blogexpress/internal/user"
	"go.uber.org/zap"
)

func (r *QueryResolver) Login(ctx context.Context, email string, password string) (*model.AuthData, error) {
	session, err := r.Users.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &model.AuthData{Token: session.Token, UserID: session.UserID}, nil
}

func (r *QueryResolver) AllUsers(ctx context.Context) ([]*model.User, error) {
	users, err := r.Users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return toUsers(users), nil
}

func (r *QueryResolver) CurrentUser(ctx context.Context) (*model.User, error) {
	u, err := r.Users.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return toUser(u), nil
}

func (r *QueryResolver) GetPost(ctx context.Context, id string) (*model.Post, error) {
	p, err := r.Posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPost(p), nil
}

func (r *QueryResolver) GetAllPosts(ctx context.Context) ([]*model.Post, error) {
	posts, err := r.Posts.GetAllPosts(ctx)
	if err != nil {
		return nil, err
	}
	return toPosts(posts), nil
}

func (r *QueryResolver) GetPublicPosts(ctx context.Context) ([]*model.Post, error) {
	posts, err := r.Posts.GetPublicPosts(ctx)
	if err != nil {
		return nil, err
	}
	return toPosts(posts), nil
}

func (r *QueryResolver) GetPrivatePosts(ctx context.Context) ([]*model.Post, error) {
	posts, err := r.Posts.GetPrivatePosts(ctx)
	if err != nil {
		return nil, err
	}
	return toPosts(posts), nil
}

func userInput(in model.UserInput) user.Input {
	return user.Input{Email: in.Email, Name: in.Name, Password: in.Password, ConfirmPassword: in.ConfirmPassword}
}

func postInput(in model.PostInput) post.Input {
	return post.Input{Title: in.Title, Content: in.Content, Status: in.PostStatus}
}

func (r *MutationResolver) CreateUser(ctx context.Context, userInputArg model.UserInput) (*model.User, error) {
	u, err := r.Users.Register(ctx, userInput(userInputArg))
	if err != nil {
		return nil, err
	}
	return toUser(u), nil
}

func (r *MutationResolver) UpdateUser(ctx context.Context, userInputArg model.UserInput) (*model.User, error) {
	u, err := r.Users.UpdateProfile(ctx, userInput(userInputArg))
	if err != nil {
		return nil, err
	}
	return toUser(u), nil
}

func (r *MutationResolver) UpdateUserRole(ctx context.Context, role string) (*model.RoleData, error) {
	u, err := r.Users.UpdateOwnRole(ctx, role)
	if err != nil {
		return nil, err
	}
	return &model.RoleData{UserID: u.ID, Role: u.Role}, nil
}

func (r *MutationResolver) AdminUpdateRoles(ctx context.Context, userID string, role string) (*model.RoleData, error) {
	u, err := r.Users.AdminUpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	return &model.RoleData{UserID: u.ID, Role: u.Role}, nil
}

func (r *MutationResolver) ForgotPassword(ctx context.Context, email string) (string, error) {
	return r.Users.ForgotPassword(ctx, email)
}

func (r *MutationResolver) ResetPassword(ctx context.Context, token string, password string, confirmPassword string) (string, error) {
	return r.Users.ResetPassword(ctx, token, password, confirmPassword)
}

func (r *MutationResolver) DeleteUser(ctx context.Context, id string) (string, error) {
	return r.Users.DeleteUser(ctx, id)
}

func (r *MutationResolver) CreatePost(ctx context.Context, postInputArg model.PostInput) (*model.Post, error) {
	p, err := r.Posts.CreatePost(ctx, postInput(postInputArg))
	if err != nil {
		return nil, err
	}
	return toPost(p), nil
}

func (r *MutationResolver) UpdatePost(ctx context.Context, id string, postInputArg model.PostInput) (*model.Post, error) {
	p, err := r.Posts.UpdatePost(ctx, id, postInput(postInputArg))
	if err != nil {
		return nil, err
	}
	return toPost(p), nil
}

func (r *MutationResolver) UpdatePostStatus(ctx context.Context, id string, status string) (*model.PostStatusData, error) {
	postID, newStatus, err := r.Posts.UpdatePostStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	return &model.PostStatusData{PostID: postID, Status: newStatus}, nil
}

func (r *MutationResolver) AddComment(ctx context.Context, commentInput model.CommentInput) (*model.CommentData, error) {
	c, err := r.Posts.AddComment(ctx, commentInput.PostID, commentInput.Text)
	if err != nil {
		return nil, err
	}
	return toCommentData(commentInput.PostID, c), nil
}

func (r *MutationResolver) DeleteComment(ctx context.Context, postID string, commentID string) (*model.DeleteCommentData, error) {
	if err := r.Posts.DeleteComment(ctx, postID, commentID); err != nil {
		return nil, err
	}
	return &model.DeleteCommentData{PostID: postID, CommentID: commentID}, nil
}

func (r *MutationResolver) LikePost(ctx context.Context, postID string) (*model.LikeData, error) {
	reaction, err := r.Posts.LikePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &model.LikeData{ID: reaction.ID, PostID: postID}, nil
}

func (r *MutationResolver) UnlikePost(ctx context.Context, postID string) (*model.LikeData, error) {
	reaction, err := r.Posts.UnlikePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &model.LikeData{ID: reaction.ID, PostID: postID}, nil
}

func (r *MutationResolver) FavoritePost(ctx context.Context, postID string) (string, error) {
	return r.Posts.FavoritePost(ctx, postID)
}

func (r *MutationResolver) DeletePost(ctx context.Context, id string) (string, error) {
	return r.Posts.DeletePost(ctx, id)
}

// CommentAdded отдает новые комментарии поста, пока клиент не отключится.
// Подписаться можно только на пост, который вызывающий может прочитать.
func (r *SubscriptionResolver) CommentAdded(ctx context.Context, postID string) (<-chan *model.CommentData, error) {
	if _, err := r.Posts.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	events, cancel := r.Subscriptions.Subscribe(postID)
	out := make(chan *model.CommentData, 1)

	go func() {
		defer close(out)
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				r.Logger.Debug("comment subscription closed", zap.String("post_id", postID))
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- toCommentData(event.PostID, &event.Comment):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Creator раскрывает автора поста; пароль не отдается. Удаленный автор - null.
func (r *PostResolver) Creator(ctx context.Context, obj *model.Post) (*model.User, error) {
	if obj.CreatorID == "" {
		return nil, nil
	}
	u, err := r.Users.GetByID(ctx, obj.CreatorID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toUser(u), nil
}

func (r *UserResolver) Posts(ctx context.Context, obj *model.User) ([]*model.Post, error) {
	// метод Posts скрывает одноименное поле Resolver
	posts, err := r.Resolver.Posts.ListByIDs(ctx, obj.PostIDs)
	if err != nil {
		return nil, err
	}
	return toPosts(posts), nil
}
