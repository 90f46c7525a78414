package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"student-manager/common/metrics"
	"student-manager/internal/db"

	"github.com/uptrace/bun"
)

const table = "users"

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetAll(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update writes the editable columns. With lockRole set the row is only
	// written while the user holds no class; otherwise ErrRoleLocked.
	Update(ctx context.Context, user *User, lockRole bool) (*User, error)
	Delete(ctx context.Context, id string) error

	// AddClass appends classID to the user's classIds unless present or the
	// user no longer has role, and reports whether a row changed.
	AddClass(ctx context.Context, userID, classID string, role Role) (bool, error)
	// RemoveClass drops classID from the user's classIds and reports whether
	// a row changed.
	RemoveClass(ctx context.Context, userID, classID string) (bool, error)
	// RemoveClassEverywhere drops classID from every user holding it.
	RemoveClassEverywhere(ctx context.Context, classID string) error

	// WithTx returns a repository bound to tx.
	WithTx(tx bun.IDB) Repository
}

type repository struct {
	db      bun.IDB
	metrics *metrics.Metrics
}

func NewRepository(db bun.IDB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) WithTx(tx bun.IDB) Repository {
	return &repository{db: tx, metrics: r.metrics}
}

func (r *repository) record(ctx context.Context, op string, start time.Time, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	r.metrics.Database.RecordQuery(ctx, op, table, time.Since(start), err)
}

func (r *repository) Create(ctx context.Context, user *User) (*User, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	r.record(ctx, "insert", start, err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *repository) GetAll(ctx context.Context) ([]User, error) {
	start := time.Now()
	users := make([]User, 0)
	err := r.db.NewSelect().Model(&users).Order("created_at ASC").Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	start := time.Now()
	user := new(User)
	err := r.db.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user %s: %w", id, err)
	}
	return user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	start := time.Now()
	user := new(User)
	err := r.db.NewSelect().Model(user).Where("email = ?", email).Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return user, nil
}

func (r *repository) Update(ctx context.Context, user *User, lockRole bool) (*User, error) {
	start := time.Now()
	user.UpdatedAt = time.Now().UTC()
	q := r.db.NewUpdate().
		Model(user).
		Column("username", "email", "password", "role", "date_of_birth", "address", "phone_number", "note", "updated_at").
		WherePK()
	if lockRole {
		q = q.Where("cardinality(class_ids) = 0")
	}
	result, err := q.Returning("*").Exec(ctx)
	r.record(ctx, "update", start, err)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, r.notUpdated(ctx, user.ID, lockRole)
	case db.IsUniqueViolation(err):
		return nil, ErrEmailExists
	case err != nil:
		return nil, fmt.Errorf("update user %s: %w", user.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, r.notUpdated(ctx, user.ID, lockRole)
	}
	return user, nil
}

// notUpdated tells a missing user apart from one that joined a class.
func (r *repository) notUpdated(ctx context.Context, id string, lockRole bool) error {
	if !lockRole {
		return ErrUserNotFound
	}
	start := time.Now()
	exists, err := r.db.NewSelect().Model((*User)(nil)).Where("id = ?", id).Exists(ctx)
	r.record(ctx, "select", start, err)

	switch {
	case err != nil:
		return fmt.Errorf("select user %s: %w", id, err)
	case exists:
		return ErrRoleLocked
	}
	return ErrUserNotFound
}

func (r *repository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*User)(nil)).Where("id = ?", id).Exec(ctx)
	r.record(ctx, "delete", start, err)

	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) AddClass(ctx context.Context, userID, classID string, role Role) (bool, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("class_ids = array_append(class_ids, ?)", classID).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Where("role = ?", role).
		Where("NOT (? = ANY(class_ids))", classID).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return false, fmt.Errorf("add class %s to user %s: %w", classID, userID, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *repository) RemoveClass(ctx context.Context, userID, classID string) (bool, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("class_ids = array_remove(class_ids, ?)", classID).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Where("? = ANY(class_ids)", classID).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return false, fmt.Errorf("remove class %s from user %s: %w", classID, userID, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *repository) RemoveClassEverywhere(ctx context.Context, classID string) error {
	start := time.Now()
	_, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("class_ids = array_remove(class_ids, ?)", classID).
		Set("updated_at = current_timestamp").
		Where("? = ANY(class_ids)", classID).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return fmt.Errorf("remove class %s from users: %w", classID, err)
	}
	return nil
}
