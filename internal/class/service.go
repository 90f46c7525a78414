package class

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"student-manager/common/apperr"
	"student-manager/common/metrics"
	"student-manager/internal/db"
	"student-manager/internal/events"
	"student-manager/internal/user"
	"student-manager/internal/validate"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrClassNotFound    = apperr.NotFound("Class Not Found")
	ErrClassIDInvalid   = apperr.Validation("Class Id Invalid")
	ErrClassNameExists  = apperr.Conflict("Class Name Already Exists")
	ErrClassHasSessions = apperr.Conflict("Can't Delete Class If It Has Sessions")
)

type Service interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error)
	GetAllClasses(ctx context.Context) ([]Class, error)
	GetClassByID(ctx context.Context, id string) (*Class, error)
	UpdateClass(ctx context.Context, id string, req UpdateClassRequest) (*Class, error)
	DeleteClass(ctx context.Context, id string) (*Class, error)
}

type service struct {
	db        *bun.DB
	repo      Repository
	users     user.Repository
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(database *bun.DB, repo Repository, users user.Repository, m *metrics.Metrics, publisher events.Publisher, logger *slog.Logger) Service {
	return &service{
		db:        database,
		repo:      repo,
		users:     users,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *service) CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validate.ErrBadRequest
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, ErrClassNameExists
	} else if !errors.Is(err, ErrClassNotFound) {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Class{
		ID:                   uuid.NewString(),
		Name:                 name,
		SessionIDs:           []string{},
		StudentIDs:           []string{},
		TeachingAssistantIDs: []string{},
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.ClassCreated, created.ID, ""))
	return created, nil
}

func (s *service) GetAllClasses(ctx context.Context) ([]Class, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) GetClassByID(ctx context.Context, id string) (*Class, error) {
	return validate.Existing[Class](ctx, s.repo, id, ErrClassIDInvalid)
}

func (s *service) UpdateClass(ctx context.Context, id string, req UpdateClassRequest) (*Class, error) {
	class, err := validate.Existing[Class](ctx, s.repo, id, ErrClassIDInvalid)
	if err != nil {
		return nil, err
	}
	if req.Name == nil {
		return class, nil
	}

	name := strings.TrimSpace(*req.Name)
	if name == "" {
		return nil, validate.ErrBadRequest
	}
	if name == class.Name {
		return class, nil
	}

	existing, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil && existing.ID != class.ID:
		return nil, ErrClassNameExists
	case err != nil && !errors.Is(err, ErrClassNotFound):
		return nil, err
	}

	return s.repo.UpdateName(ctx, class.ID, name)
}

// DeleteClass removes a class that has no sessions and drops it from the
// classIds of its former members.
func (s *service) DeleteClass(ctx context.Context, id string) (*Class, error) {
	class, err := validate.Existing[Class](ctx, s.repo, id, ErrClassIDInvalid)
	if err != nil {
		return nil, err
	}
	if len(class.SessionIDs) > 0 {
		return nil, ErrClassHasSessions
	}

	err = db.RunInTx(ctx, s.db, s.metrics, "delete_class", func(ctx context.Context, tx bun.Tx) error {
		deleted, err := s.repo.WithTx(tx).DeleteEmpty(ctx, class.ID)
		if err != nil {
			return err
		}
		if !deleted {
			// a session was attached after the check above
			return ErrClassHasSessions
		}
		return s.users.WithTx(tx).RemoveClassEverywhere(ctx, class.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "class deleted", "class_id", class.ID, "students", len(class.StudentIDs), "teaching_assistants", len(class.TeachingAssistantIDs))
	events.Emit(ctx, s.publisher, s.logger, events.New(events.ClassDeleted, class.ID, ""))
	return class, nil
}
