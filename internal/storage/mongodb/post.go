package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type commentDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	User primitive.ObjectID `bson:"user"`
	Text string             `bson:"text"`
}

type reactionDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	User primitive.ObjectID `bson:"user"`
}

type postDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Status    string             `bson:"postStatus"`
	Creator   primitive.ObjectID `bson:"creator"`
	Comments  []commentDoc       `bson:"comments"`
	Likes     []reactionDoc      `bson:"likes"`
	Unlikes   []reactionDoc      `bson:"unlikes"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type PostStorage struct {
	posts *mongo.Collection
}

func NewPostStorage(db *mongo.Database) *PostStorage {
	return &PostStorage{posts: db.Collection(postsCollection)}
}

func (s *PostStorage) CreatePost(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	creator, err := primitive.ObjectIDFromHex(p.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("invalid creator id %q: %w", p.CreatorID, err)
	}

	now := time.Now().UTC()
	doc := postDoc{
		ID:        primitive.NewObjectID(),
		Title:     p.Title,
		Content:   p.Content,
		Status:    p.Status,
		Creator:   creator,
		Comments:  []commentDoc{},
		Likes:     []reactionDoc{},
		Unlikes:   []reactionDoc{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not create post: %w", err)
	}
	return toPostDomain(doc), nil
}

func (s *PostStorage) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc postDoc
	err = s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get post by id: %w", err)
	}
	return toPostDomain(doc), nil
}

func (s *PostStorage) ListPosts(ctx context.Context, status string) ([]*domain.Post, error) {
	filter := bson.M{}
	if status != "" {
		filter["postStatus"] = status
	}
	return s.find(ctx, filter)
}

func (s *PostStorage) ListPostsByIDs(ctx context.Context, ids []string) ([]*domain.Post, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*domain.Post{}, nil
	}

	found, err := s.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	posts := make([]*domain.Post, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (s *PostStorage) find(ctx context.Context, filter bson.M) ([]*domain.Post, error) {
	cursor, err := s.posts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("could not get posts: %w", err)
	}

	var docs []postDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("could not decode posts: %w", err)
	}

	posts := make([]*domain.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, toPostDomain(doc))
	}
	return posts, nil
}

// UpdatePost - findOneAndUpdate c upsert: поля поста перезаписываются,
// при вставке массивы и createdAt получают значения по умолчанию.
func (s *PostStorage) UpdatePost(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	oid := primitive.NewObjectID()
	if p.ID != "" {
		var err error
		if oid, err = primitive.ObjectIDFromHex(p.ID); err != nil {
			return nil, storage.ErrNotFound
		}
	}
	creator, err := primitive.ObjectIDFromHex(p.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("invalid creator id %q: %w", p.CreatorID, err)
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"title":      p.Title,
			"content":    p.Content,
			"postStatus": p.Status,
			"creator":    creator,
			"updatedAt":  now,
		},
		"$setOnInsert": bson.M{
			"comments":  []commentDoc{},
			"likes":     []reactionDoc{},
			"unlikes":   []reactionDoc{},
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc postDoc
	if err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not update post: %w", err)
	}
	return toPostDomain(doc), nil
}

func (s *PostStorage) UpdatePostStatus(ctx context.Context, id, status string) error {
	return s.updateOne(ctx, id, nil, bson.M{"$set": bson.M{"postStatus": status}})
}

func (s *PostStorage) DeletePost(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("could not delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostStorage) DeletePostsByCreator(ctx context.Context, creatorID string) error {
	oid, err := objectID(creatorID)
	if err != nil {
		return nil
	}
	if _, err := s.posts.DeleteMany(ctx, bson.M{"creator": oid}); err != nil {
		return fmt.Errorf("could not delete posts of user %s: %w", creatorID, err)
	}
	return nil
}

func (s *PostStorage) AddComment(ctx context.Context, postID string, c *domain.Comment) (*domain.Comment, error) {
	user, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", c.UserID, err)
	}

	doc := commentDoc{ID: primitive.NewObjectID(), User: user, Text: c.Text}
	if err := s.updateOne(ctx, postID, nil, bson.M{"$push": bson.M{"comments": doc}}); err != nil {
		return nil, err
	}
	return &domain.Comment{ID: doc.ID.Hex(), UserID: c.UserID, Text: c.Text}, nil
}

func (s *PostStorage) RemoveComment(ctx context.Context, postID, commentID string) error {
	cid, err := objectID(commentID)
	if err != nil {
		return err
	}
	return s.updateOne(ctx, postID, bson.M{"comments._id": cid}, bson.M{"$pull": bson.M{"comments": bson.M{"_id": cid}}})
}

func (s *PostStorage) AddReaction(ctx context.Context, postID string, kind domain.ReactionKind, userID string) (*domain.Reaction, error) {
	user, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	doc := reactionDoc{ID: primitive.NewObjectID(), User: user}
	if err := s.updateOne(ctx, postID, nil, bson.M{"$push": bson.M{reactionField(kind): doc}}); err != nil {
		return nil, err
	}
	return &domain.Reaction{ID: doc.ID.Hex(), UserID: userID}, nil
}

func (s *PostStorage) RemoveReaction(ctx context.Context, postID string, kind domain.ReactionKind, reactionID string) error {
	rid, err := objectID(reactionID)
	if err != nil {
		return err
	}
	field := reactionField(kind)
	return s.updateOne(ctx, postID, bson.M{field + "._id": rid}, bson.M{"$pull": bson.M{field: bson.M{"_id": rid}}})
}

func (s *PostStorage) RemoveUserReactions(ctx context.Context, postID string, kind domain.ReactionKind, userID string) error {
	user, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	return s.updateOne(ctx, postID, nil, bson.M{"$pull": bson.M{reactionField(kind): bson.M{"user": user}}})
}

// updateOne применяет update к посту. match - дополнительные условия
// (например, наличие удаляемого элемента массива); не совпало - ErrNotFound.
func (s *PostStorage) updateOne(ctx context.Context, postID string, match, update bson.M) error {
	oid, err := objectID(postID)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid}
	for k, v := range match {
		filter[k] = v
	}

	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now().UTC()

	res, err := s.posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("could not update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func reactionField(kind domain.ReactionKind) string {
	if kind == domain.ReactionUnlike {
		return "unlikes"
	}
	return "likes"
}

func toPostDomain(doc postDoc) *domain.Post {
	post := &domain.Post{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Content:   doc.Content,
		Status:    doc.Status,
		CreatorID: doc.Creator.Hex(),
		Comments:  make([]domain.Comment, 0, len(doc.Comments)),
		Likes:     toReactions(doc.Likes),
		Unlikes:   toReactions(doc.Unlikes),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, c := range doc.Comments {
		post.Comments = append(post.Comments, domain.Comment{ID: c.ID.Hex(), UserID: c.User.Hex(), Text: c.Text})
	}
	return post
}

func toReactions(docs []reactionDoc) []domain.Reaction {
	out := make([]domain.Reaction, 0, len(docs))
	for _, r := range docs {
		out = append(out, domain.Reaction{ID: r.ID.Hex(), UserID: r.User.Hex()})
	}
	return out
}
