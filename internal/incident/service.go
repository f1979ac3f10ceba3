package incident

import (
	"context"
	"fmt"
	"strings"

	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/google/uuid"
)

type Service struct {
	repo *Repo
	log  logger.Logger
}

func NewService(repo *Repo, log logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Report 对自己的预订上报事故。
func (s *Service) Report(ctx context.Context, reservationID, userID, description string) (*Incident, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("description is required")
	}

	res, err := s.repo.FindReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, ErrNotParticipant
	}

	inc := &Incident{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		UserID:        userID,
		Description:   strings.TrimSpace(description),
	}
	if err := s.repo.Create(ctx, inc); err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.Warnf("incident reported reservation=%s user=%s", reservationID, userID)
	}
	return inc, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Incident, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListByUser(ctx, userID)
}
