package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/VitaminP8/blogexpress/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Stores {
		return storagetest.Stores{
			Users: NewUserMemoryStorage(),
			Posts: NewPostMemoryStorage(),
		}
	})
}

func TestPostMemoryStorage_ReturnsCopies(t *testing.T) {
	storage := NewPostMemoryStorage()
	ctx := context.Background()

	post, err := storage.CreatePost(ctx, &domain.Post{Title: "title", Content: "content", Status: "public", CreatorID: "u-1"})
	require.NoError(t, err)

	t.Run("Changing returned post does not change storage", func(t *testing.T) {
		got, err := storage.GetPostByID(ctx, post.ID)
		require.NoError(t, err)

		got.Title = "changed"
		got.Likes = append(got.Likes, domain.Reaction{ID: "r", UserID: "u-2"})

		again, err := storage.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "title", again.Title)
		assert.Empty(t, again.Likes)
	})

	t.Run("Upsert creates missing post", func(t *testing.T) {
		created, err := storage.UpdatePost(ctx, &domain.Post{ID: "manual-id", Title: "t", Content: "c", Status: "private", CreatorID: "u-1"})
		require.NoError(t, err)
		assert.Equal(t, "manual-id", created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		posts, err := storage.ListPosts(ctx, "")
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	})
}

func TestPostMemoryStorage_ConcurrentOperations(t *testing.T) {
	storage := NewPostMemoryStorage()
	ctx := context.Background()

	post, err := storage.CreatePost(ctx, &domain.Post{Title: "title", Content: "content", Status: "public", CreatorID: "u-0"})
	require.NoError(t, err)

	t.Run("Concurrent comments and likes", func(t *testing.T) {
		var wg sync.WaitGroup
		numGoroutines := 10

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				userID := "u-" + strconv.Itoa(idx+1)

				_, err := storage.AddComment(ctx, post.ID, &domain.Comment{UserID: userID, Text: "Comment " + strconv.Itoa(idx)})
				assert.NoError(t, err)

				_, err = storage.AddReaction(ctx, post.ID, domain.ReactionLike, userID)
				assert.NoError(t, err)
			}(i)
		}

		wg.Wait()

		got, err := storage.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Len(t, got.Comments, numGoroutines)
		assert.Len(t, got.Likes, numGoroutines)
	})
}
