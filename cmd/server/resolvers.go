package main

import (
	"github.com/VitaminP8/blogexpress/graph"
	"github.com/VitaminP8/blogexpress/graph/generated"
)

// resolverRoot связывает резолверы из graph с интерфейсами сгенерированной схемы.
type resolverRoot struct {
	r *graph.Resolver
}

func (root resolverRoot) Query() generated.QueryResolver { return root.r.Query() }

func (root resolverRoot) Mutation() generated.MutationResolver { return root.r.Mutation() }

func (root resolverRoot) Subscription() generated.SubscriptionResolver {
	return root.r.Subscription()
}

func (root resolverRoot) Post() generated.PostResolver { return root.r.Post() }

func (root resolverRoot) User() generated.UserResolver { return root.r.User() }
