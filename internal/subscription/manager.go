package subscription

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"RebarForecast/internal/model"
)

// Manager keeps the set of chats subscribed to the weekly broadcast.
type Manager struct {
	mu       sync.Mutex
	state    *model.SubscriberState
	filePath string
	log      zerolog.Logger
}

// NewManager creates a Manager, loading state from disk.
func NewManager(filePath string, log zerolog.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	slices.Sort(state.ChatIDs)
	state.ChatIDs = slices.Compact(state.ChatIDs)
	return &Manager{state: state, filePath: filePath, log: log}, nil
}

// Subscribe adds chatID. It reports false if the chat was already subscribed.
func (m *Manager) Subscribe(chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, found := slices.BinarySearch(m.state.ChatIDs, chatID)
	if found {
		return false, nil
	}
	m.state.ChatIDs = slices.Insert(m.state.ChatIDs, i, chatID)
	if err := m.save(); err != nil {
		m.state.ChatIDs = slices.Delete(m.state.ChatIDs, i, i+1)
		return false, err
	}
	m.log.Info().Int64("chat_id", chatID).Msg("chat subscribed")
	return true, nil
}

// Unsubscribe removes chatID. It reports false if the chat was not subscribed.
func (m *Manager) Unsubscribe(chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, found := slices.BinarySearch(m.state.ChatIDs, chatID)
	if !found {
		return false, nil
	}
	m.state.ChatIDs = slices.Delete(m.state.ChatIDs, i, i+1)
	if err := m.save(); err != nil {
		m.state.ChatIDs = slices.Insert(m.state.ChatIDs, i, chatID)
		return false, err
	}
	m.log.Info().Int64("chat_id", chatID).Msg("chat unsubscribed")
	return true, nil
}

// IsSubscribed reports whether chatID receives the broadcast.
func (m *Manager) IsSubscribed(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, found := slices.BinarySearch(m.state.ChatIDs, chatID)
	return found
}

// List returns a copy of the subscribed chat ids in ascending order.
func (m *Manager) List() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.ChatIDs)
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
