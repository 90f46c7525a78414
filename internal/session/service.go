package session

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"student-manager/common/apperr"
	"student-manager/common/metrics"
	"student-manager/internal/class"
	"student-manager/internal/db"
	"student-manager/internal/events"
	"student-manager/internal/validate"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrSessionNotFound    = apperr.NotFound("Session Not Found")
	ErrSessionIDInvalid   = apperr.Validation("Session Id Invalid")
	ErrSessionDateInvalid = apperr.Validation("Session Date Is Invalid")
	ErrShiftInvalid       = apperr.Validation("Session Shift Invalid")
	ErrSessionNotUnique   = apperr.Conflict("Session Index And Session Date Must Be Unique")
	ErrSessionNameBlank   = apperr.Validation("Session Name Can't Be Blank")
)

type Service interface {
	CreateSession(ctx context.Context, classID string, req CreateSessionRequest) (*Session, error)
	GetAllSessions(ctx context.Context) ([]Session, error)
	GetSessionByID(ctx context.Context, id string) (*Session, error)
	GetSessionsByClassID(ctx context.Context, classID string) ([]Session, error)
	UpdateSession(ctx context.Context, id string, req UpdateSessionRequest) (*Session, error)
}

type service struct {
	db        *bun.DB
	repo      Repository
	classes   class.Repository
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(database *bun.DB, repo Repository, classes class.Repository, m *metrics.Metrics, publisher events.Publisher, logger *slog.Logger) Service {
	return &service{
		db:        database,
		repo:      repo,
		classes:   classes,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
	}
}

// DefaultName is the name given to a session created without one.
func DefaultName(index int) string {
	return "Day " + strconv.Itoa(index)
}

func (s *service) CreateSession(ctx context.Context, classID string, req CreateSessionRequest) (*Session, error) {
	owner, err := validate.Existing[class.Class](ctx, s.classes, classID, class.ErrClassIDInvalid)
	if err != nil {
		return nil, err
	}
	if !req.Shift.Valid() {
		return nil, ErrShiftInvalid
	}
	date, err := validate.Date(req.SessionDate, ErrSessionDateInvalid)
	if err != nil {
		return nil, err
	}

	name := DefaultName(req.SessionIndex)
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}

	collides, err := s.repo.Collides(ctx, owner.ID, req.SessionIndex, date, "")
	if err != nil {
		return nil, err
	}
	if collides {
		return nil, ErrSessionNotUnique
	}

	session := &Session{
		ID:           uuid.NewString(),
		SessionIndex: req.SessionIndex,
		Name:         name,
		ClassID:      owner.ID,
		SessionDate:  date,
		Shift:        req.Shift,
		Points:       []string{},
		Title:        req.Title,
		Content:      req.Content,
		Note:         req.Note,
	}

	err = db.RunInTx(ctx, s.db, s.metrics, "create_session", func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, session); err != nil {
			return err
		}
		added, err := s.classes.WithTx(tx).AddSession(ctx, owner.ID, session.ID)
		if err != nil {
			return err
		}
		if !added {
			return class.ErrClassNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.SessionCreated, session.ID, owner.ID))
	return session, nil
}

func (s *service) GetAllSessions(ctx context.Context) ([]Session, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) GetSessionByID(ctx context.Context, id string) (*Session, error) {
	return validate.Existing[Session](ctx, s.repo, id, ErrSessionIDInvalid)
}

func (s *service) GetSessionsByClassID(ctx context.Context, classID string) ([]Session, error) {
	owner, err := validate.Existing[class.Class](ctx, s.classes, classID, class.ErrClassIDInvalid)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByClassID(ctx, owner.ID)
}

func (s *service) UpdateSession(ctx context.Context, id string, req UpdateSessionRequest) (*Session, error) {
	session, err := validate.Existing[Session](ctx, s.repo, id, ErrSessionIDInvalid)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrSessionNameBlank
		}
		session.Name = name
	}

	probe := false
	if req.SessionIndex != nil && *req.SessionIndex != session.SessionIndex {
		session.SessionIndex = *req.SessionIndex
		probe = true
	}
	if req.SessionDate != nil {
		date, err := validate.Date(*req.SessionDate, ErrSessionDateInvalid)
		if err != nil {
			return nil, err
		}
		if !date.Equal(session.SessionDate) {
			session.SessionDate = date
			probe = true
		}
	}
	if req.Shift != nil {
		if !req.Shift.Valid() {
			return nil, ErrShiftInvalid
		}
		session.Shift = *req.Shift
	}

	if probe {
		collides, err := s.repo.Collides(ctx, session.ClassID, session.SessionIndex, session.SessionDate, session.ID)
		if err != nil {
			return nil, err
		}
		if collides {
			return nil, ErrSessionNotUnique
		}
	}

	if req.Title != nil {
		session.Title = req.Title
	}
	if req.Content != nil {
		session.Content = req.Content
	}
	if req.Note != nil {
		session.Note = req.Note
	}

	return s.repo.Update(ctx, session)
}
