// Package sqlite is the local development store. It keeps the same contract
// as the Postgres store on a single file, using gorm with a pure-Go driver.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ store.Store = (*SQLiteStore)(nil)

type projectRow struct {
	ID        string  `gorm:"primaryKey;size:36"`
	UserID    *string `gorm:"size:36"`
	Name      string  `gorm:"size:255"`
	Type      string  `gorm:"size:16"`
	CreatedAt time.Time
}

func (projectRow) TableName() string { return "projects" }

type conversationRow struct {
	ID        string  `gorm:"primaryKey;size:36"`
	UserID    string  `gorm:"index;size:36"`
	ProjectID *string `gorm:"index;size:36"`
	Title     string  `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (conversationRow) TableName() string { return "conversations" }

// messageRow uses seq as its rowid, so seq order is insertion order.
type messageRow struct {
	Seq            int64   `gorm:"primaryKey;autoIncrement"`
	ID             string  `gorm:"uniqueIndex;size:36"`
	ConversationID string  `gorm:"index;size:36"`
	Role           string  `gorm:"size:16"`
	Content        string  `gorm:"type:text"`
	Metadata       *string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (messageRow) TableName() string { return "chat_messages" }

type requirementRow struct {
	ID              string  `gorm:"primaryKey;size:36"`
	ProjectID       string  `gorm:"index;size:36"`
	Type            string  `gorm:"size:32"`
	Category        *string `gorm:"size:64"`
	Priority        string  `gorm:"size:16"`
	Title           string  `gorm:"size:255"`
	Description     string  `gorm:"type:text"`
	Status          string  `gorm:"size:16"`
	ConfidenceScore *int
	CreatedBy       string `gorm:"size:36"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (requirementRow) TableName() string { return "requirements" }

type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database file and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	s := &SQLiteStore{db: db}
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// AutoMigrate creates database tables
func (s *SQLiteStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&projectRow{}, &conversationRow{}, &messageRow{}, &requirementRow{}); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("WARN [SQLiteStore] Close: %v", err)
	}
}

// --- Projects ---

// CreateProject seeds a project. Projects are normally owned by another
// service; locally they have to be inserted by hand.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	row := projectRow{
		ID:        p.ID.String(),
		UserID:    uuidPtrString(p.UserID),
		Name:      p.Name,
		Type:      string(p.Type.OrOther()),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("sqlite error creating project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var row projectRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite error fetching project: %w", err)
	}
	return &models.Project{
		ID:     uuid.MustParse(row.ID),
		UserID: parseUUIDPtr(row.UserID),
		Name:   row.Name,
		Type:   models.ProjectType(row.Type),
	}, nil
}

// --- Conversations ---

func (s *SQLiteStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, *models.Message, error) {
	now := time.Now().UTC()
	conv := conversationRow{
		ID:        arg.ID.String(),
		UserID:    arg.UserID.String(),
		ProjectID: uuidPtrString(arg.ProjectID),
		Title:     arg.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	msg := messageRow{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           string(models.RoleAssistant),
		Content:        arg.OpeningMessage,
		Metadata:       jsonString(arg.Metadata),
		CreatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if conv.ProjectID != nil {
			if err := requireRow(tx, &projectRow{}, *conv.ProjectID); err != nil {
				return err
			}
		}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("sqlite error creating conversation: %w", err)
	}
	return conv.toModel(), msg.toModel(), nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Conversation, error) {
	var row conversationRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id.String(), userID.String()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite error fetching conversation: %w", err)
	}
	return row.toModel(), nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]models.Conversation, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if projectID != nil {
		query = query.Where("project_id = ?", projectID.String())
	}
	var rows []conversationRow
	if err := query.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlite error listing conversations: %w", err)
	}
	out := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toModel())
	}
	return out, nil
}

// --- Messages ---

func (s *SQLiteStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.Message, error) {
	now := time.Now().UTC()
	msg := messageRow{
		ID:             uuid.NewString(),
		ConversationID: arg.ConversationID.String(),
		Role:           string(arg.Role),
		Content:        arg.Content,
		Metadata:       jsonString(arg.Metadata),
		CreatedAt:      now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		touched := tx.Model(&conversationRow{}).Where("id = ?", msg.ConversationID).Update("updated_at", now)
		if touched.Error != nil {
			return touched.Error
		}
		if touched.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite error appending message: %w", err)
	}
	return msg.toModel(), nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite error listing messages: %w", err)
	}
	return toMessages(rows), nil
}

// LastMessages returns the newest limit messages, oldest first.
func (s *SQLiteStore) LastMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("seq DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite error listing messages: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toMessages(rows), nil
}

func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&messageRow{}).
		Where("conversation_id = ?", conversationID.String()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("sqlite error counting messages: %w", err)
	}
	return int(n), nil
}

// --- Requirements ---

func (s *SQLiteStore) InsertRequirement(ctx context.Context, arg store.InsertRequirementParams) (uuid.UUID, error) {
	now := time.Now().UTC()
	id := uuid.New()
	row := requirementRow{
		ID:              id.String(),
		ProjectID:       arg.ProjectID.String(),
		Type:            string(arg.Type),
		Category:        arg.Category,
		Priority:        string(arg.Priority),
		Title:           arg.Title,
		Description:     arg.Description,
		Status:          string(arg.Status),
		ConfidenceScore: arg.ConfidenceScore,
		CreatedBy:       arg.CreatedBy.String(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &projectRow{}, row.ProjectID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("sqlite error inserting requirement: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListRequirementsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Requirement, error) {
	var rows []requirementRow
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite error listing requirements: %w", err)
	}
	out := make([]models.Requirement, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Requirement{
			ID:              uuid.MustParse(row.ID),
			ProjectID:       uuid.MustParse(row.ProjectID),
			Type:            models.RequirementType(row.Type),
			Category:        row.Category,
			Priority:        models.RequirementPriority(row.Priority),
			Title:           row.Title,
			Description:     row.Description,
			Status:          models.RequirementStatus(row.Status),
			ConfidenceScore: row.ConfidenceScore,
			CreatedBy:       uuid.MustParse(row.CreatedBy),
			CreatedAt:       row.CreatedAt,
			UpdatedAt:       row.UpdatedAt,
		})
	}
	return out, nil
}

// --- Helpers ---

// requireRow returns store.ErrNotFound unless a row with the id exists.
func requireRow(tx *gorm.DB, model any, id string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *conversationRow) toModel() *models.Conversation {
	return &models.Conversation{
		ID:        uuid.MustParse(r.ID),
		UserID:    uuid.MustParse(r.UserID),
		ProjectID: parseUUIDPtr(r.ProjectID),
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *messageRow) toModel() *models.Message {
	m := &models.Message{
		ID:             uuid.MustParse(r.ID),
		ConversationID: uuid.MustParse(r.ConversationID),
		Seq:            r.Seq,
		Role:           models.MessageRole(r.Role),
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}
	if r.Metadata != nil {
		m.Metadata = json.RawMessage(*r.Metadata)
	}
	return m
}

func toMessages(rows []messageRow) []models.Message {
	out := make([]models.Message, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseUUIDPtr(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

func jsonString(m json.RawMessage) *string {
	if len(m) == 0 {
		return nil
	}
	s := string(m)
	return &s
}
