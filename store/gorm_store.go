package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BaSui01/askflow/types"
)

// conversationRecord is the GORM row shape for a conversation.
type conversationRecord struct {
	ID               string `gorm:"primaryKey;type:varchar(64)"`
	Asker            string `gorm:"type:varchar(128);index"`
	AskerRole        string `gorm:"type:varchar(64)"`
	CurrentResponder string `gorm:"type:varchar(128);index"`
	ResponderRole    string `gorm:"type:varchar(64)"`
	State            string `gorm:"type:varchar(32);index"`
	EscalationLevel  int
	Generation       uint64
	QuestionCategory string `gorm:"type:varchar(64)"`
	Question         string `gorm:"type:text"`
	OrganizationID   string `gorm:"type:varchar(64)"`
	SquadID          string `gorm:"type:varchar(64)"`
	TaskID           string `gorm:"type:varchar(64);index"`
	CreatedAt        time.Time
	AcknowledgedAt   *time.Time
	TimeoutAt        *time.Time
	ResolvedAt       *time.Time
	UpdatedAt        time.Time
}

func (conversationRecord) TableName() string { return "conversations" }

// eventRecord is the GORM row shape for a conversation event.
type eventRecord struct {
	ID             string `gorm:"primaryKey;type:varchar(64)"`
	ConversationID string `gorm:"type:varchar(64);uniqueIndex:idx_conversation_seq,priority:1"`
	Seq            uint64 `gorm:"uniqueIndex:idx_conversation_seq,priority:2"`
	EventType      string `gorm:"type:varchar(32)"`
	FromState      string `gorm:"type:varchar(32)"`
	ToState        string `gorm:"type:varchar(32)"`
	TriggeredBy    string `gorm:"type:varchar(128)"`
	Payload        string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (eventRecord) TableName() string { return "conversation_events" }

// GormStore is a GORM-backed ConversationStore for production deployments.
// Each transition commits state and events in one transaction, satisfying the
// atomic "read current state, write new state + event" contract.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GORM-backed store and migrates its tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, ErrInvalidInput
	}
	if err := db.AutoMigrate(&conversationRecord{}, &eventRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Create persists a new conversation with its initial events.
func (s *GormStore) Create(ctx context.Context, conv *types.Conversation, events ...*types.ConversationEvent) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidInput
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&conversationRecord{}).Where("id = ?", conv.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(toConversationRecord(conv)).Error; err != nil {
			return err
		}
		return appendEventsTx(tx, conv.ID, events)
	})
}

// Get retrieves a conversation by id.
func (s *GormStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	var rec conversationRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromConversationRecord(&rec), nil
}

// ApplyTransition persists the new state and appends events atomically.
func (s *GormStore) ApplyTransition(ctx context.Context, conv *types.Conversation, events ...*types.ConversationEvent) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidInput
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&conversationRecord{}).Where("id = ?", conv.ID).
			Select("*").Omit("created_at").Updates(toConversationRecord(conv))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return appendEventsTx(tx, conv.ID, events)
	})
}

// appendEventsTx assigns sequence numbers after the current maximum and
// inserts the events within the caller's transaction.
func appendEventsTx(tx *gorm.DB, conversationID string, events []*types.ConversationEvent) error {
	if len(events) == 0 {
		return nil
	}

	var maxSeq uint64
	row := tx.Model(&eventRecord{}).Where("conversation_id = ?", conversationID).
		Select("COALESCE(MAX(seq), 0)").Row()
	if err := row.Scan(&maxSeq); err != nil {
		return err
	}

	for _, ev := range events {
		if ev == nil {
			continue
		}
		maxSeq++
		ev.Seq = maxSeq
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Now()
		}
		rec, err := toEventRecord(ev)
		if err != nil {
			return err
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListEvents returns the event trail ordered by sequence number.
func (s *GormStore) ListEvents(ctx context.Context, conversationID string) ([]*types.ConversationEvent, error) {
	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]*types.ConversationEvent, 0, len(recs))
	for i := range recs {
		ev, err := fromEventRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// ListActive returns all non-terminal conversations.
func (s *GormStore) ListActive(ctx context.Context) ([]*types.Conversation, error) {
	var recs []conversationRecord
	err := s.db.WithContext(ctx).
		Where("state NOT IN ?", []string{string(types.StateAnswered), string(types.StateCancelled)}).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]*types.Conversation, 0, len(recs))
	for i := range recs {
		out = append(out, fromConversationRecord(&recs[i]))
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toConversationRecord(conv *types.Conversation) *conversationRecord {
	return &conversationRecord{
		ID:               conv.ID,
		Asker:            conv.Asker,
		AskerRole:        conv.AskerRole,
		CurrentResponder: conv.CurrentResponder,
		ResponderRole:    conv.ResponderRole,
		State:            string(conv.State),
		EscalationLevel:  conv.EscalationLevel,
		Generation:       conv.Generation,
		QuestionCategory: conv.QuestionCategory,
		Question:         conv.Question,
		OrganizationID:   conv.Scope.OrganizationID,
		SquadID:          conv.Scope.SquadID,
		TaskID:           conv.TaskID,
		CreatedAt:        conv.CreatedAt,
		AcknowledgedAt:   conv.AcknowledgedAt,
		TimeoutAt:        conv.TimeoutAt,
		ResolvedAt:       conv.ResolvedAt,
	}
}

func fromConversationRecord(rec *conversationRecord) *types.Conversation {
	return &types.Conversation{
		ID:               rec.ID,
		Asker:            rec.Asker,
		AskerRole:        rec.AskerRole,
		CurrentResponder: rec.CurrentResponder,
		ResponderRole:    rec.ResponderRole,
		State:            types.ConversationState(rec.State),
		EscalationLevel:  rec.EscalationLevel,
		Generation:       rec.Generation,
		QuestionCategory: rec.QuestionCategory,
		Question:         rec.Question,
		Scope:            types.ScopeContext{OrganizationID: rec.OrganizationID, SquadID: rec.SquadID},
		TaskID:           rec.TaskID,
		CreatedAt:        rec.CreatedAt,
		AcknowledgedAt:   rec.AcknowledgedAt,
		TimeoutAt:        rec.TimeoutAt,
		ResolvedAt:       rec.ResolvedAt,
	}
}

func toEventRecord(ev *types.ConversationEvent) (*eventRecord, error) {
	payload := ""
	if len(ev.Payload) > 0 {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		payload = string(data)
	}
	return &eventRecord{
		ID:             ev.ID,
		ConversationID: ev.ConversationID,
		Seq:            ev.Seq,
		EventType:      string(ev.Type),
		FromState:      string(ev.FromState),
		ToState:        string(ev.ToState),
		TriggeredBy:    ev.TriggeredBy,
		Payload:        payload,
		CreatedAt:      ev.CreatedAt,
	}, nil
}

func fromEventRecord(rec *eventRecord) (*types.ConversationEvent, error) {
	var payload map[string]any
	if rec.Payload != "" {
		if err := json.Unmarshal([]byte(rec.Payload), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
		}
	}
	return &types.ConversationEvent{
		ID:             rec.ID,
		ConversationID: rec.ConversationID,
		Seq:            rec.Seq,
		Type:           types.EventType(rec.EventType),
		FromState:      types.ConversationState(rec.FromState),
		ToState:        types.ConversationState(rec.ToState),
		TriggeredBy:    rec.TriggeredBy,
		Payload:        payload,
		CreatedAt:      rec.CreatedAt,
	}, nil
}
