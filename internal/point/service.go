package point

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"student-manager/common/apperr"
	"student-manager/common/metrics"
	"student-manager/internal/db"
	"student-manager/internal/events"
	"student-manager/internal/session"
	"student-manager/internal/user"
	"student-manager/internal/validate"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrPointNotFound       = apperr.NotFound("Point Not Found")
	ErrPointIDInvalid      = apperr.Validation("Point Id Invalid")
	ErrStudentIDInvalid    = apperr.Validation("Student Id Invalid")
	ErrNotAStudent         = apperr.Conflict("User Is Not A Student")
	ErrStudentHasPoint     = apperr.Conflict("Student Already Have Point")
	ErrCompletionTimeValue = apperr.Validation("Homework Completion Time Is Invalid")
)

type Service interface {
	CreatePoint(ctx context.Context, req CreatePointRequest) (*Point, error)
	GetAllPoints(ctx context.Context) ([]Point, error)
	UpdatePoint(ctx context.Context, id string, req UpdatePointRequest) (*Point, error)
	DeletePoint(ctx context.Context, id string) (*Point, error)
}

type service struct {
	db        *bun.DB
	repo      Repository
	sessions  session.Repository
	users     user.Repository
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(database *bun.DB, repo Repository, sessions session.Repository, users user.Repository, m *metrics.Metrics, publisher events.Publisher, logger *slog.Logger) Service {
	return &service{
		db:        database,
		repo:      repo,
		sessions:  sessions,
		users:     users,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *service) CreatePoint(ctx context.Context, req CreatePointRequest) (*Point, error) {
	owner, err := validate.Existing[session.Session](ctx, s.sessions, req.SessionID, session.ErrSessionIDInvalid)
	if err != nil {
		return nil, err
	}
	student, err := s.student(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureFree(ctx, owner.ID, student.ID, ""); err != nil {
		return nil, err
	}

	scores, err := validate.PointPayload(req.PointFields)
	if err != nil {
		return nil, err
	}
	completed, err := completionTime(req.HomeworkCompletionTime)
	if err != nil {
		return nil, err
	}

	point := &Point{
		ID:                     uuid.NewString(),
		SessionID:              owner.ID,
		StudentID:              student.ID,
		HomeworkCompletionTime: completed,
	}
	point.apply(scores)

	err = db.RunInTx(ctx, s.db, s.metrics, "create_point", func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, point); err != nil {
			return err
		}
		_, err := s.sessions.WithTx(tx).AddPoint(ctx, owner.ID, point.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.PointCreated, point.ID, owner.ID))
	return point, nil
}

func (s *service) GetAllPoints(ctx context.Context) ([]Point, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) UpdatePoint(ctx context.Context, id string, req UpdatePointRequest) (*Point, error) {
	point, err := validate.Existing[Point](ctx, s.repo, id, ErrPointIDInvalid)
	if err != nil {
		return nil, err
	}
	previousSession := point.SessionID

	if req.SessionID != nil {
		owner, err := validate.Existing[session.Session](ctx, s.sessions, *req.SessionID, session.ErrSessionIDInvalid)
		if err != nil {
			return nil, err
		}
		point.SessionID = owner.ID
	}
	if req.StudentID != nil {
		student, err := s.student(ctx, *req.StudentID)
		if err != nil {
			return nil, err
		}
		point.StudentID = student.ID
	}
	if req.SessionID != nil || req.StudentID != nil {
		if err := s.ensureFree(ctx, point.SessionID, point.StudentID, point.ID); err != nil {
			return nil, err
		}
	}

	scores, err := validate.PointPayload(req.PointFields)
	if err != nil {
		return nil, err
	}
	point.apply(scores)

	if req.HomeworkCompletionTime != nil {
		completed, err := completionTime(req.HomeworkCompletionTime)
		if err != nil {
			return nil, err
		}
		point.HomeworkCompletionTime = completed
	}

	var updated *Point
	err = db.RunInTx(ctx, s.db, s.metrics, "update_point", func(ctx context.Context, tx bun.Tx) error {
		var err error
		if updated, err = s.repo.WithTx(tx).Update(ctx, point); err != nil {
			return err
		}
		if previousSession == point.SessionID {
			return nil
		}
		sessions := s.sessions.WithTx(tx)
		if _, err := sessions.RemovePoint(ctx, previousSession, point.ID); err != nil {
			return err
		}
		_, err = sessions.AddPoint(ctx, point.SessionID, point.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) DeletePoint(ctx context.Context, id string) (*Point, error) {
	point, err := validate.Existing[Point](ctx, s.repo, id, ErrPointIDInvalid)
	if err != nil {
		return nil, err
	}

	err = db.RunInTx(ctx, s.db, s.metrics, "delete_point", func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.WithTx(tx).Delete(ctx, point.ID); err != nil {
			return err
		}
		_, err := s.sessions.WithTx(tx).RemovePoint(ctx, point.SessionID, point.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.PointDeleted, point.ID, point.SessionID))
	return point, nil
}

func (s *service) student(ctx context.Context, raw string) (*user.User, error) {
	u, err := validate.Existing[user.User](ctx, s.users, raw, ErrStudentIDInvalid)
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleStudent {
		return nil, ErrNotAStudent
	}
	return u, nil
}

// ensureFree fails when another point already exists for the pair.
func (s *service) ensureFree(ctx context.Context, sessionID, studentID, excludeID string) error {
	existing, err := s.repo.GetByPair(ctx, sessionID, studentID)
	switch {
	case errors.Is(err, ErrPointNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == excludeID:
		return nil
	}
	return ErrStudentHasPoint
}

func completionTime(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := validate.Date(*raw, ErrCompletionTimeValue)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
