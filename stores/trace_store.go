package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Tool trace statuses.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusDenied = "denied"
)

// ToolTrace records one tool execution inside a turn.
// Indexed by turn_id and tool_call_id for retrieval.
type ToolTrace struct {
	ID           uint                   `gorm:"primarykey" json:"-"`
	CreatedAt    time.Time              `json:"-"`
	TurnID       string                 `gorm:"index:idx_trace_turn;not null" json:"turn_id"`
	ToolCallID   string                 `gorm:"index:idx_trace_turn;index:idx_trace_call;not null" json:"tool_call_id"`
	Tool         string                 `gorm:"not null" json:"tool"`
	Status       string                 `gorm:"not null" json:"status"` // ok, error, denied
	LocationName string                 `json:"location_name"`
	Latitude     float64                `json:"latitude"`
	Longitude    float64                `json:"longitude"`
	ArgsJSON     string                 `gorm:"type:text" json:"-"`
	Args         map[string]interface{} `gorm:"-" json:"args,omitempty"`
	ErrorMessage string                 `gorm:"type:text" json:"error,omitempty"`
	Timestamp    int64                  `gorm:"not null" json:"timestamp"`
	DurationMS   int64                  `json:"duration_ms"`
}

// BeforeSave marshals Args to ArgsJSON
func (t *ToolTrace) BeforeSave(tx *gorm.DB) error {
	if t.Args != nil {
		data, err := json.Marshal(t.Args)
		if err != nil {
			return err
		}
		t.ArgsJSON = string(data)
	}
	return nil
}

// AfterFind unmarshals ArgsJSON to Args
func (t *ToolTrace) AfterFind(tx *gorm.DB) error {
	if t.ArgsJSON != "" {
		return json.Unmarshal([]byte(t.ArgsJSON), &t.Args)
	}
	return nil
}

// TraceStore persists tool traces. Implementations must be safe for
// concurrent use; several tool calls of one turn save at once.
type TraceStore interface {
	SaveTrace(ctx context.Context, trace *ToolTrace) error
	GetTracesByTurn(ctx context.Context, turnID string) ([]*ToolTrace, error)
	GetTracesByToolCall(ctx context.Context, toolCallID string) ([]*ToolTrace, error)
	Close() error
}

type GORMTraceStore struct {
	db *gorm.DB
}

// NewGORMTraceStore creates a trace store from an existing GORM database connection
func NewGORMTraceStore(db *gorm.DB) (*GORMTraceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if err := db.AutoMigrate(&ToolTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tool_traces table: %w", err)
	}
	return &GORMTraceStore{db: db}, nil
}

func (s *GORMTraceStore) SaveTrace(ctx context.Context, trace *ToolTrace) error {
	if trace.Timestamp == 0 {
		trace.Timestamp = time.Now().UnixMilli()
	}
	return s.db.WithContext(ctx).Create(trace).Error
}

// GetTracesByTurn returns a turn's traces oldest first.
func (s *GORMTraceStore) GetTracesByTurn(ctx context.Context, turnID string) ([]*ToolTrace, error) {
	var traces []*ToolTrace
	err := s.db.WithContext(ctx).
		Where("turn_id = ?", turnID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&traces).Error
	return traces, err
}

func (s *GORMTraceStore) GetTracesByToolCall(ctx context.Context, toolCallID string) ([]*ToolTrace, error) {
	var traces []*ToolTrace
	err := s.db.WithContext(ctx).
		Where("tool_call_id = ?", toolCallID).
		Order("timestamp ASC").
		Find(&traces).Error
	return traces, err
}

// Ping checks if the database connection is alive
func (s *GORMTraceStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *GORMTraceStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
