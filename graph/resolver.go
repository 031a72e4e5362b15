package graph

//go:generate go run github.com/99designs/gqlgen generate

import (
	"github.com/VitaminP8/blogexpress/internal/post"
	"github.com/VitaminP8/blogexpress/internal/subscription"
	"github.com/VitaminP8/blogexpress/internal/user"
	"go.uber.org/zap"
)

// Resolver служит корневой точкой для всех резолверов.
// Вся логика живет в сервисах, резолверы только переводят типы схемы.
type Resolver struct {
	Users         *user.Service
	Posts         *post.Service
	Subscriptions subscription.Manager
	Logger        *zap.Logger
}

type QueryResolver struct{ *Resolver }

type MutationResolver struct{ *Resolver }

type SubscriptionResolver struct{ *Resolver }

type PostResolver struct{ *Resolver }

type UserResolver struct{ *Resolver }

func (r *Resolver) Query() *QueryResolver { return &QueryResolver{r} }

func (r *Resolver) Mutation() *MutationResolver { return &MutationResolver{r} }

func (r *Resolver) Subscription() *SubscriptionResolver { return &SubscriptionResolver{r} }

func (r *Resolver) Post() *PostResolver { return &PostResolver{r} }

func (r *Resolver) User() *UserResolver { return &UserResolver{r} }
