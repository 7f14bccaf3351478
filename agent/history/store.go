package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	contractx "github.com/remitai/agentcore/agent/contract"
)

// historyHeader prefixes every non-empty rendering so the model can tell
// prior turns apart from the live task description.
const historyHeader = "PREVIOUS CHAT HISTORY:"

const DefaultRecentLimit = 5

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps per-conversation history. Implementations assign the
// timestamp on Append; callers never supply one.
type Store interface {
	Append(ctx context.Context, conversationID string, role Role, content string) error
	Recent(ctx context.Context, conversationID string, limit int) (string, error)
	Turns(ctx context.Context, conversationID string) ([]Turn, error)
	Clear(ctx context.Context, conversationID string) error
}

// Render produces the prompt-ready form of the given turns: the fixed
// header followed by one "ROLE: content" line per turn in chronological
// order. Empty input renders to an empty string, not a bare header.
func Render(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(historyHeader)
	for _, t := range turns {
		b.WriteByte('\n')
		b.WriteString(strings.ToUpper(string(t.Role)))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}

func validateAppend(conversationID, content string) error {
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("%w: conversation id is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: turn content is empty", contractx.ErrValidation)
	}
	return nil
}

func lastN(turns []Turn, limit int) []Turn {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

// MemoryStore is the volatile default backend. State is process-wide and
// lost on restart; durable backends implement the same Store contract.
type MemoryStore struct {
	mu      sync.Mutex
	history map[string][]Turn
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history: make(map[string][]Turn),
		now:     time.Now,
	}
}

func (m *MemoryStore) Append(_ context.Context, conversationID string, role Role, content string) error {
	if err := validateAppend(conversationID, content); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[conversationID] = append(m.history[conversationID], Turn{
		Role:      role,
		Content:   content,
		Timestamp: m.now().UTC(),
	})
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, conversationID string, limit int) (string, error) {
	turns, err := m.Turns(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return Render(lastN(turns, limit)), nil
}

func (m *MemoryStore) Turns(_ context.Context, conversationID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.history[conversationID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Clear is idempotent; clearing an unknown conversation is not an error.
func (m *MemoryStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, conversationID)
	return nil
}
