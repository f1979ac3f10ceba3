package support

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message 客服联系表单留言。未登录也可以提交，UserID 可为空。
type Message struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index;size:36"`
	Email     string    `gorm:"size:120;not null"`
	Subject   string    `gorm:"size:200;not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "support_messages"
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, m *Message) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Message, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Message
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]Message, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 50
	}
	var out []Message
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type Service struct {
	repo *Repo
	log  logger.Logger
}

func NewService(repo *Repo, log logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Submit(ctx context.Context, userID, email, subject, body string) (*Message, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	email = strings.TrimSpace(email)
	subject = strings.TrimSpace(subject)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if subject == "" || strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("subject and body are required")
	}

	m := &Message{
		ID:      uuid.NewString(),
		UserID:  userID,
		Email:   email,
		Subject: subject,
		Body:    body,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Message, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, offset, limit int) ([]Message, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, offset, limit)
}
