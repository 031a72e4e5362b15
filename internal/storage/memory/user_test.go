package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/VitaminP8/blogexpress/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMemoryStorage_ReturnsCopies(t *testing.T) {
	storage := NewUserMemoryStorage()
	ctx := context.Background()

	user, err := storage.CreateUser(ctx, &domain.User{Email: "a@x.com", Name: "A", Role: domain.RoleUser})
	require.NoError(t, err)

	user.Favorites = append(user.Favorites, "p-1")
	user.Name = "changed"

	got, err := storage.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Empty(t, got.Favorites)
}

func TestUserMemoryStorage_ResetTokenIsRequired(t *testing.T) {
	storage := NewUserMemoryStorage()
	ctx := context.Background()

	// у пользователя без токена PasswordResetToken пустой, пустой токен не должен его находить
	_, err := storage.CreateUser(ctx, &domain.User{Email: "a@x.com", PasswordResetExpires: 10})
	require.NoError(t, err)

	_, err = storage.GetUserByResetToken(ctx, "", 0)
	assert.Error(t, err)
}

func TestUserMemoryStorage_ConcurrentOperations(t *testing.T) {
	storage := NewUserMemoryStorage()
	ctx := context.Background()

	user, err := storage.CreateUser(ctx, &domain.User{Email: "a@x.com", Name: "A"})
	require.NoError(t, err)

	t.Run("Concurrent post references", func(t *testing.T) {
		var wg sync.WaitGroup
		numGoroutines := 10

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				assert.NoError(t, storage.AddUserPost(ctx, user.ID, "p-"+strconv.Itoa(idx)))
			}(i)
		}

		wg.Wait()

		got, err := storage.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, got.Posts, numGoroutines)
	})
}
