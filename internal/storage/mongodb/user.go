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

type userDoc struct {
	ID                   primitive.ObjectID   `bson:"_id"`
	Email                string               `bson:"email"`
	Name                 string               `bson:"name"`
	Password             string               `bson:"password"`
	Role                 string               `bson:"role"`
	Posts                []primitive.ObjectID `bson:"posts"`
	Favorites            []primitive.ObjectID `bson:"favorites"`
	PasswordResetToken   string               `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires int64                `bson:"passwordResetExpires,omitempty"`
	CreatedAt            time.Time            `bson:"createdAt"`
	UpdatedAt            time.Time            `bson:"updatedAt"`
}

type UserStorage struct {
	users *mongo.Collection
}

func NewUserStorage(db *mongo.Database) *UserStorage {
	return &UserStorage{users: db.Collection(usersCollection)}
}

func (s *UserStorage) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	doc, err := toUserDoc(u)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, storage.ErrDuplicate
		}
		return nil, fmt.Errorf("could not create user: %w", err)
	}
	return toUserDomain(doc), nil
}

func (s *UserStorage) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *UserStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStorage) GetUserByResetToken(ctx context.Context, token string, nowMillis int64) (*domain.User, error) {
	if token == "" {
		return nil, storage.ErrNotFound
	}
	return s.findOne(ctx, bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": bson.M{"$gt": nowMillis},
	})
}

func (s *UserStorage) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get user: %w", err)
	}
	return toUserDomain(doc), nil
}

func (s *UserStorage) ListUsers(ctx context.Context) ([]*domain.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("could not get users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("could not decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, toUserDomain(doc))
	}
	return users, nil
}

func (s *UserStorage) SetProfile(ctx context.Context, id, email, name, passwordHash string) (*domain.User, error) {
	return s.upsert(ctx, id, bson.M{
		"email":    email,
		"name":     name,
		"password": passwordHash,
	}, bson.M{"role": domain.RoleUser})
}

func (s *UserStorage) SetRole(ctx context.Context, id, role string) (*domain.User, error) {
	return s.upsert(ctx, id, bson.M{"role": role}, bson.M{
		"email":    "",
		"name":     "",
		"password": "",
	})
}

// upsert выставляет set, остальные поля нового документа берутся из onInsert.
func (s *UserStorage) upsert(ctx context.Context, id string, set, onInsert bson.M) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	set["updatedAt"] = now
	onInsert["posts"] = bson.A{}
	onInsert["favorites"] = bson.A{}
	onInsert["createdAt"] = now

	var doc userDoc
	err = s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{
		"$set":         set,
		"$setOnInsert": onInsert,
	}, options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, storage.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("could not save user: %w", err)
	}
	return toUserDomain(doc), nil
}

func (s *UserStorage) SetResetToken(ctx context.Context, id, token string, expires int64) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": expires,
		"updatedAt":            time.Now().UTC(),
	}})
}

func (s *UserStorage) SetPassword(ctx context.Context, id, passwordHash string) error {
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	})
}

func (s *UserStorage) update(ctx context.Context, id string, change bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, change)
	if err != nil {
		return fmt.Errorf("could not update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ToggleFavorite сначала пробует $pull; если поста в избранном не было, делает $addToSet.
func (s *UserStorage) ToggleFavorite(ctx context.Context, userID, postID string) (bool, error) {
	uid, err := objectID(userID)
	if err != nil {
		return false, err
	}
	pid, err := objectID(postID)
	if err != nil {
		return false, err
	}
	touched := bson.M{"updatedAt": time.Now().UTC()}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": uid, "favorites": pid}, bson.M{
		"$pull": bson.M{"favorites": pid},
		"$set":  touched,
	})
	if err != nil {
		return false, fmt.Errorf("could not update favorites: %w", err)
	}
	if res.MatchedCount > 0 {
		return false, nil
	}

	res, err = s.users.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{
		"$addToSet": bson.M{"favorites": pid},
		"$set":      touched,
	})
	if err != nil {
		return false, fmt.Errorf("could not update favorites: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, storage.ErrNotFound
	}
	return true, nil
}

func (s *UserStorage) DeleteUser(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("could not delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *UserStorage) AddUserPost(ctx context.Context, userID, postID string) error {
	return s.updatePosts(ctx, userID, postID, "$push")
}

func (s *UserStorage) RemoveUserPost(ctx context.Context, userID, postID string) error {
	return s.updatePosts(ctx, userID, postID, "$pull")
}

func (s *UserStorage) updatePosts(ctx context.Context, userID, postID, op string) error {
	uid, err := objectID(userID)
	if err != nil {
		return err
	}
	pid, err := objectID(postID)
	if err != nil {
		return err
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{
		op:     bson.M{"posts": pid},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("could not update user posts: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func toUserDoc(u *domain.User) (userDoc, error) {
	doc := userDoc{
		Email:                u.Email,
		Name:                 u.Name,
		Password:             u.PasswordHash,
		Role:                 u.Role,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}

	if u.ID != "" {
		oid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return userDoc{}, fmt.Errorf("invalid user id %q: %w", u.ID, err)
		}
		doc.ID = oid
	}

	var err error
	if doc.Posts, err = objectIDs(u.Posts); err != nil {
		return userDoc{}, err
	}
	if doc.Favorites, err = objectIDs(u.Favorites); err != nil {
		return userDoc{}, err
	}
	return doc, nil
}

func toUserDomain(doc userDoc) *domain.User {
	return &domain.User{
		ID:                   doc.ID.Hex(),
		Email:                doc.Email,
		Name:                 doc.Name,
		PasswordHash:         doc.Password,
		Role:                 doc.Role,
		Posts:                hexIDs(doc.Posts),
		Favorites:            hexIDs(doc.Favorites),
		PasswordResetToken:   doc.PasswordResetToken,
		PasswordResetExpires: doc.PasswordResetExpires,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
	}
}
