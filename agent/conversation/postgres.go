package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	contractx "github.com/yugent/yugent/agent/contract"
)

// PostgresConfig configures the bun-backed store.
type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// PostgresStore persists conversations in Postgres. Saves are insert-only:
// rows already written for a conversation are never updated or reordered, so
// the table mirrors the append-only log.
type PostgresStore struct {
	db *bun.DB
}

type messageRow struct {
	bun.BaseModel `bun:"table:conversation_messages,alias:m"`

	ID             int64           `bun:"id,pk,autoincrement"`
	ConversationID string          `bun:"conversation_id,notnull"`
	Seq            int             `bun:"seq,notnull"`
	Role           string          `bun:"role,notnull"`
	Content        string          `bun:"content"`
	ToolCall       json.RawMessage `bun:"tool_call,type:jsonb,nullzero"`
	ToolResult     json.RawMessage `bun:"tool_result,type:jsonb,nullzero"`
	CreatedAt      time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
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

	return &PostgresStore{db: db}, nil
}

// Init creates the backing table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*messageRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create conversation_messages table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidConversation
	}

	var rows []messageRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("conversation_id = ?", id).
		Order("seq ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	messages, err := fromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return Restore(id, messages), nil
}

// Save appends messages not yet persisted. Already-stored rows stay untouched.
func (s *PostgresStore) Save(ctx context.Context, c *Conversation) error {
	if c == nil {
		return fmt.Errorf("%w: conversation is nil", contractx.ErrValidation)
	}

	persisted, err := s.db.NewSelect().
		Model((*messageRow)(nil)).
		Where("conversation_id = ?", c.ID()).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("count persisted messages for %s: %w", c.ID(), err)
	}

	history := c.History()
	if persisted >= len(history) {
		return nil
	}

	rows, err := toRows(c.ID(), persisted, history[persisted:])
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", c.ID(), err)
	}

	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert messages for %s: %w", c.ID(), err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidConversation
	}
	if _, err := s.db.NewDelete().
		Model((*messageRow)(nil)).
		Where("conversation_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func toRows(conversationID string, startSeq int, messages []contractx.Message) ([]messageRow, error) {
	rows := make([]messageRow, 0, len(messages))
	now := time.Now().UTC()
	for i, m := range messages {
		row := messageRow{
			ConversationID: conversationID,
			Seq:            startSeq + i,
			Role:           string(m.Role),
			Content:        m.Content,
			CreatedAt:      now,
		}
		if m.ToolCall != nil {
			raw, err := json.Marshal(m.ToolCall)
			if err != nil {
				return nil, fmt.Errorf("marshal tool call at seq %d: %w", row.Seq, err)
			}
			row.ToolCall = raw
		}
		if m.ToolResult != nil {
			raw, err := json.Marshal(m.ToolResult)
			if err != nil {
				return nil, fmt.Errorf("marshal tool result at seq %d: %w", row.Seq, err)
			}
			row.ToolResult = raw
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func fromRows(rows []messageRow) ([]contractx.Message, error) {
	messages := make([]contractx.Message, 0, len(rows))
	for _, row := range rows {
		m := contractx.Message{
			Role:    contractx.Role(row.Role),
			Content: row.Content,
		}
		if len(row.ToolCall) > 0 {
			var call contractx.ToolCallRequest
			if err := json.Unmarshal(row.ToolCall, &call); err != nil {
				return nil, fmt.Errorf("unmarshal tool call at seq %d: %w", row.Seq, err)
			}
			m.ToolCall = &call
		}
		if len(row.ToolResult) > 0 {
			var result contractx.ToolResult
			if err := json.Unmarshal(row.ToolResult, &result); err != nil {
				return nil, fmt.Errorf("unmarshal tool result at seq %d: %w", row.Seq, err)
			}
			m.ToolResult = &result
		}
		messages = append(messages, m)
	}
	return messages, nil
}
