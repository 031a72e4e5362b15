package subscription

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/VitaminP8/blogexpress/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(postID, commentID string) *CommentEvent {
	return &CommentEvent{
		PostID:  postID,
		Comment: domain.Comment{ID: commentID, UserID: "789", Text: "Test comment"},
	}
}

func TestSubscriptionManager_Subscribe(t *testing.T) {
	t.Run("Cancel removes only its own channel", func(t *testing.T) {
		manager := NewSubscriptionManager()

		_, cancel1 := manager.Subscribe("post1")
		_, cancel2 := manager.Subscribe("post1")
		_, cancel3 := manager.Subscribe("post2")

		manager.mu.Lock()
		assert.Len(t, manager.subs["post1"], 2)
		assert.Len(t, manager.subs["post2"], 1)
		manager.mu.Unlock()

		cancel2()

		manager.mu.Lock()
		assert.Len(t, manager.subs["post1"], 1)
		assert.Len(t, manager.subs["post2"], 1)
		manager.mu.Unlock()

		cancel1()
		cancel3()

		manager.mu.Lock()
		assert.Empty(t, manager.subs["post1"])
		assert.Empty(t, manager.subs["post2"])
		manager.mu.Unlock()
	})

	t.Run("Cancel closes the channel and is idempotent", func(t *testing.T) {
		manager := NewSubscriptionManager()

		ch, cancel := manager.Subscribe("post1")
		cancel()
		assert.NotPanics(t, cancel)

		_, ok := <-ch
		assert.False(t, ok)
	})
}

func TestSubscriptionManager_Publish(t *testing.T) {
	t.Run("Every subscriber of the post receives the event", func(t *testing.T) {
		manager := NewSubscriptionManager()

		ch1, cancel1 := manager.Subscribe("post1")
		ch2, cancel2 := manager.Subscribe("post1")
		defer cancel1()
		defer cancel2()

		event := newEvent("post1", "456")
		manager.Publish(event)

		for i, ch := range []<-chan *CommentEvent{ch1, ch2} {
			select {
			case got := <-ch:
				assert.Equal(t, event, got, "subscriber %d", i+1)
			case <-time.After(time.Second):
				t.Fatalf("subscriber %d timed out", i+1)
			}
		}
	})

	t.Run("Other posts are not notified", func(t *testing.T) {
		manager := NewSubscriptionManager()

		ch, cancel := manager.Subscribe("post2")
		defer cancel()

		manager.Publish(newEvent("post1", "456"))

		select {
		case <-ch:
			t.Fatal("subscriber of post2 should not receive the event")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("Slow subscriber is skipped", func(t *testing.T) {
		manager := NewSubscriptionManager()

		_, cancel := manager.Subscribe("post1")
		defer cancel()

		// первое событие ложится в буфер, второе ждет publishTimeout и пропускается
		start := time.Now()
		manager.Publish(newEvent("post1", "1"))
		manager.Publish(newEvent("post1", "2"))
		assert.GreaterOrEqual(t, time.Since(start), publishTimeout)
	})

	t.Run("No subscribers", func(t *testing.T) {
		manager := NewSubscriptionManager()
		assert.NotPanics(t, func() {
			manager.Publish(newEvent("post1", "456"))
		})
	})
}

func TestSubscriptionManager_Concurrent(t *testing.T) {
	t.Run("Concurrent subscriptions and publications", func(t *testing.T) {
		manager := NewSubscriptionManager()
		postID := "123"

		numSubscribers := 10
		numPublications := 5

		cancels := make([]func(), numSubscribers)
		received := make([]int, numSubscribers)
		var mu sync.Mutex
		var readers sync.WaitGroup

		for i := 0; i < numSubscribers; i++ {
			ch, cancel := manager.Subscribe(postID)
			cancels[i] = cancel

			readers.Add(1)
			go func(idx int, ch <-chan *CommentEvent) {
				defer readers.Done()
				for event := range ch {
					require.Equal(t, postID, event.PostID)
					mu.Lock()
					received[idx]++
					mu.Unlock()
				}
			}(i, ch)
		}

		var wg sync.WaitGroup
		for i := 0; i < numPublications; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				manager.Publish(newEvent(postID, strconv.Itoa(1000+idx)))
			}(i)
		}
		wg.Wait()

		for _, cancel := range cancels {
			cancel()
		}
		readers.Wait()

		for i := 0; i < numSubscribers; i++ {
			assert.Equal(t, numPublications, received[i], "subscriber %d did not receive all events", i)
		}
	})

	t.Run("Concurrent subscribes and unsubscribes", func(t *testing.T) {
		manager := NewSubscriptionManager()
		postID := "123"

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				ch, cancel := manager.Subscribe(postID)
				time.Sleep(5 * time.Millisecond)
				cancel()

				_, ok := <-ch
				assert.False(t, ok, "channel should be closed after cancel")
			}()
		}
		wg.Wait()

		manager.mu.Lock()
		assert.Empty(t, manager.subs[postID])
		manager.mu.Unlock()
	})
}
