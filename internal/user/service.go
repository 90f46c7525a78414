package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"student-manager/common/apperr"
	"student-manager/internal/events"
	"student-manager/internal/validate"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound  = apperr.NotFound("User Not Found")
	ErrUserIDInvalid = apperr.Validation("User Id Invalid")
	ErrEmailExists   = apperr.Conflict("Email Already Exists")
	ErrRoleInvalid   = apperr.Validation("User Role Invalid")
	ErrDateInvalid   = apperr.Validation("Date Of Birth Is Invalid")
	ErrRoleLocked    = apperr.Conflict("Can't Change Role Of User In Class")
	ErrPasswordLong  = apperr.Validation("Password Is Too Long")
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error)
}

type service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	if !req.Role.Valid() {
		return nil, ErrRoleInvalid
	}
	dob, err := validate.Date(req.DateOfBirth, ErrDateInvalid)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:          uuid.NewString(),
		Username:    strings.TrimSpace(req.Username),
		Email:       email,
		Password:    hash,
		Role:        req.Role,
		DateOfBirth: dob,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Note:        req.Note,
		ClassIDs:    []string{},
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.UserCreated, created.ID, ""))
	return created, nil
}

func (s *service) GetAllUsers(ctx context.Context) ([]User, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) GetUserByID(ctx context.Context, id string) (*User, error) {
	return validate.Existing[User](ctx, s.repo, id, ErrUserIDInvalid)
}

func (s *service) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	user, err := validate.Existing[User](ctx, s.repo, id, ErrUserIDInvalid)
	if err != nil {
		return nil, err
	}

	roleChanged := req.Role != nil && *req.Role != user.Role
	if roleChanged {
		if !req.Role.Valid() {
			return nil, ErrRoleInvalid
		}
		// membership lists are partitioned by role
		if len(user.ClassIDs) > 0 {
			return nil, ErrRoleLocked
		}
		user.Role = *req.Role
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			existing, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, ErrEmailExists
			case err != nil && !errors.Is(err, ErrUserNotFound):
				return nil, err
			}
			user.Email = email
		}
	}

	if req.DateOfBirth != nil {
		dob, err := validate.Date(*req.DateOfBirth, ErrDateInvalid)
		if err != nil {
			return nil, err
		}
		user.DateOfBirth = dob
	}

	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.Note != nil {
		user.Note = req.Note
	}

	return s.repo.Update(ctx, user, roleChanged)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
