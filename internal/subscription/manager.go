package subscription

import (
	"sync"
	"time"
)

// publishTimeout - сколько ждем медленного подписчика, прежде чем пропустить его
const publishTimeout = 500 * time.Millisecond

type SubscriptionManager struct {
	mu   sync.Mutex
	subs map[string][]chan *CommentEvent // postID -> список каналов подписчиков
}

func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		subs: make(map[string][]chan *CommentEvent),
	}
}

func (m *SubscriptionManager) Subscribe(postID string) (<-chan *CommentEvent, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan *CommentEvent, 1) // Буфер 1, чтобы не блокировался писатель

	m.subs[postID] = append(m.subs[postID], ch)

	// функция для отписки, повторный вызов ничего не делает
	var once sync.Once
	cancel := func() {
		once.Do(func() {
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
		})
	}

	return ch, cancel
}

func (m *SubscriptionManager) Publish(event *CommentEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs[event.PostID] {
		select {
		case sub <- event:
		case <-time.After(publishTimeout):
			// Если канал заполнен, ждем короткое время и идем дальше
		}
	}
}
