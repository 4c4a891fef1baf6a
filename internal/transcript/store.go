// Package transcript holds the ordered message history of one agent run.
package transcript

import (
	"errors"
	"sync"

	"github.com/ashutoshrp06/taskloop/internal/types"
)

// ErrFirstMessage is returned when the first appended message is not user text.
var ErrFirstMessage = errors.New("transcript must start with a user message")

// Store is an append-only transcript. Entries are never reordered, merged or
// dropped. It is owned by a single run; the lock only lets a UI read while the
// run appends.
type Store struct {
	mu       sync.RWMutex
	messages []types.Message
}

// NewStore creates an empty transcript.
func NewStore() *Store {
	return &Store{
		messages: make([]types.Message, 0, 8),
	}
}

// Append adds messages to the end of the transcript.
func (s *Store) Append(msgs ...types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) == 0 && len(msgs) > 0 && msgs[0].Kind != types.KindUserText {
		return ErrFirstMessage
	}
	s.messages = append(s.messages, msgs...)
	return nil
}

// Messages returns a copy of the transcript.
func (s *Store) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Message, len(s.messages))
	copy(result, s.messages)
	return result
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message.
func (s *Store) Last() (types.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return types.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// FirstUserText returns the text of the message that started the run.
func (s *Store) FirstUserText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[0].Text
}
