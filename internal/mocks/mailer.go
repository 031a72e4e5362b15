package mocks

import (
	"context"
	"sync"

	"github.com/VitaminP8/blogexpress/internal/mail"
)

// MockMailer реализует интерфейс mail.Mailer и запоминает отправленные письма
type MockMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	Err  error // если задано - Send возвращает эту ошибку
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent - вспомогательный метод для тестирования, возвращает копию отправленных писем
func (m *MockMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]mail.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last возвращает последнее письмо или nil
func (m *MockMailer) Last() *mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return nil
	}
	msg := m.sent[len(m.sent)-1]
	return &msg
}
