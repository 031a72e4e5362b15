package mocks

import (
	"sync"

	"github.com/VitaminP8/blogexpress/internal/subscription"
)

// MockSubscriptionManager раздает события подписчикам и запоминает все публикации
type MockSubscriptionManager struct {
	mu            sync.Mutex
	subs          map[string][]chan *subscription.CommentEvent // postID -> список каналов подписчиков
	notifications map[string][]*subscription.CommentEvent      // Для отслеживания в тестах
}

func NewMockSubscriptionManager() *MockSubscriptionManager {
	return &MockSubscriptionManager{
		subs:          make(map[string][]chan *subscription.CommentEvent),
		notifications: make(map[string][]*subscription.CommentEvent),
	}
}

func (m *MockSubscriptionManager) Subscribe(postID string) (<-chan *subscription.CommentEvent, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// буфер побольше, чтобы тесты не зависели от скорости чтения
	ch := make(chan *subscription.CommentEvent, 16)
	m.subs[postID] = append(m.subs[postID], ch)

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subscribers := m.subs[postID]
		for i, sub := range subscribers {
			if sub == ch {
				m.subs[postID] = append(subscribers[:i], subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}

	return ch, cancel
}

func (m *MockSubscriptionManager) Publish(event *subscription.CommentEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs[event.PostID] {
		select {
		case sub <- event:
		default:
		}
	}

	m.notifications[event.PostID] = append(m.notifications[event.PostID], event)
}

// GetNotificationsForPost - вспомогательный метод для тестирования,
// возвращает все уведомления для конкретного поста
func (m *MockSubscriptionManager) GetNotificationsForPost(postID string) []*subscription.CommentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.notifications[postID]
}
