package services

import "sync"

// SentEmail captures one email handed to the mock sender
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is an in-memory EmailSender for testing
type MockEmailSender struct {
	mu       sync.Mutex
	Messages []SentEmail
	FailWith error
}

// NewMockEmailSender creates an empty mock sender
func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

// Send records the email, or returns the configured failure
func (m *MockEmailSender) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Messages = append(m.Messages, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of all recorded emails
func (m *MockEmailSender) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.Messages))
	copy(out, m.Messages)
	return out
}
