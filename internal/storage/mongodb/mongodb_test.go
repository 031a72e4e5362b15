package mongodb

import (
	"context"
	"os"
	"testing"

	"github.com/VitaminP8/blogexpress/internal/config"
	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage"
	"github.com/VitaminP8/blogexpress/internal/storage/storagetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Тесты с реальной базой запускаются только при заданном MONGO_TEST_URI.
func TestMongoStorage_Contract(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI is not set")
	}

	storagetest.Run(t, func(t *testing.T) storagetest.Stores {
		ctx := context.Background()
		cfg := config.MongoConfig{URI: uri, Database: "blogexpress_test_" + uuid.NewString()[:8]}

		client, db, err := Connect(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = db.Drop(context.Background())
			_ = client.Disconnect(context.Background())
		})

		return storagetest.Stores{
			Users: NewUserStorage(db),
			Posts: NewPostStorage(db),
		}
	})
}

func TestObjectID(t *testing.T) {
	t.Run("Invalid hex is not found", func(t *testing.T) {
		_, err := objectID("not-an-object-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Valid hex", func(t *testing.T) {
		oid, err := objectID(storagetest.MissingID)
		require.NoError(t, err)
		assert.Equal(t, storagetest.MissingID, oid.Hex())
	})
}

func TestToUserDoc(t *testing.T) {
	t.Run("Round trip keeps references", func(t *testing.T) {
		u := &domain.User{
			ID:        storagetest.MissingID,
			Email:     "a@x.com",
			Role:      domain.RoleUser,
			Posts:     []string{storagetest.UpsertID},
			Favorites: []string{storagetest.UpsertID},
		}

		doc, err := toUserDoc(u)
		require.NoError(t, err)

		back := toUserDomain(doc)
		assert.Equal(t, u.ID, back.ID)
		assert.Equal(t, u.Posts, back.Posts)
		assert.Equal(t, u.Favorites, back.Favorites)
	})

	t.Run("Favorite that is not an ObjectID", func(t *testing.T) {
		_, err := toUserDoc(&domain.User{Favorites: []string{"abc"}})
		assert.Error(t, err)
	})
}
