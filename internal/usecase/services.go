package usecase

import (
	"context"

	"screencast/internal/domain"
)

// SessionService records finished and running sessions for the history API.
type SessionService struct {
	sessions SessionRepository
}

func NewSessionService(s SessionRepository) *SessionService {
	return &SessionService{sessions: s}
}

func (s *SessionService) Record(ctx context.Context, sess domain.Session) error {
	return s.sessions.SaveSession(ctx, sess)
}

func (s *SessionService) Get(ctx context.Context, id string) (domain.Session, bool, error) {
	return s.sessions.GetSession(ctx, id)
}

func (s *SessionService) List(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	return s.sessions.ListSessions(ctx, limit, offset)
}

func (s *SessionService) ClearAll(ctx context.Context) error {
	return s.sessions.ClearAllSessions(ctx)
}
