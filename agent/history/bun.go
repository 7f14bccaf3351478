package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type turnRow struct {
	bun.BaseModel `bun:"table:conversation_turns,alias:ct"`

	ID             int64     `bun:"id,pk,autoincrement"`
	ConversationID string    `bun:"conversation_id,notnull"`
	Role           string    `bun:"role,notnull"`
	Content        string    `bun:"content,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

type BunConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// BunStore persists conversation turns in Postgres. It is an optional
// durable backend behind the same Store contract as MemoryStore.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewBunStore(cfg BunConfig) (*BunStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &BunStore{db: db, now: time.Now}, nil
}

// Init creates the backing table if it does not exist yet.
func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*turnRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create conversation_turns table: %w", err)
	}
	return nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) Append(ctx context.Context, conversationID string, role Role, content string) error {
	if err := validateAppend(conversationID, content); err != nil {
		return err
	}
	row := &turnRow{
		ConversationID: conversationID,
		Role:           string(role),
		Content:        content,
		CreatedAt:      s.now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}

func (s *BunStore) Recent(ctx context.Context, conversationID string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var rows []turnRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("conversation_id = ?", conversationID).
		OrderExpr("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("select recent turns: %w", err)
	}

	// Query returns newest-first; rendering is chronological.
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return Render(rowsToTurns(rows)), nil
}

func (s *BunStore) Turns(ctx context.Context, conversationID string) ([]Turn, error) {
	var rows []turnRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("conversation_id = ?", conversationID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select turns: %w", err)
	}
	return rowsToTurns(rows), nil
}

func (s *BunStore) Clear(ctx context.Context, conversationID string) error {
	_, err := s.db.NewDelete().
		Model((*turnRow)(nil)).
		Where("conversation_id = ?", conversationID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	return nil
}

func rowsToTurns(rows []turnRow) []Turn {
	turns := make([]Turn, 0, len(rows))
	for _, r := range rows {
		turns = append(turns, Turn{
			Role:      Role(r.Role),
			Content:   r.Content,
			Timestamp: r.CreatedAt,
		})
	}
	return turns
}
