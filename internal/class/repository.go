package class

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

const table = "classes"

type Repository interface {
	Create(ctx context.Context, class *Class) (*Class, error)
	GetAll(ctx context.Context) ([]Class, error)
	GetByID(ctx context.Context, id string) (*Class, error)
	GetByName(ctx context.Context, name string) (*Class, error)
	UpdateName(ctx context.Context, id, name string) (*Class, error)
	// DeleteEmpty deletes the class only while it has no sessions and
	// reports whether it did.
	DeleteEmpty(ctx context.Context, id string) (bool, error)

	AddMember(ctx context.Context, classID string, list MemberList, userID string) (bool, error)
	RemoveMember(ctx context.Context, classID string, list MemberList, userID string) (bool, error)
	// RemoveMemberEverywhere drops userID from both lists of every class.
	RemoveMemberEverywhere(ctx context.Context, userID string) error

	AddSession(ctx context.Context, classID, sessionID string) (bool, error)
	RemoveSession(ctx context.Context, classID, sessionID string) (bool, error)

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

func (r *repository) Create(ctx context.Context, class *Class) (*Class, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(class).Returning("*").Exec(ctx)
	r.record(ctx, "insert", start, err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrClassNameExists
		}
		return nil, fmt.Errorf("insert class: %w", err)
	}
	return class, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Class, error) {
	start := time.Now()
	classes := make([]Class, 0)
	err := r.db.NewSelect().Model(&classes).Order("created_at ASC").Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		return nil, fmt.Errorf("select classes: %w", err)
	}
	return classes, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Class, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *repository) GetByName(ctx context.Context, name string) (*Class, error) {
	return r.getBy(ctx, "name = ?", name)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (*Class, error) {
	start := time.Now()
	class := new(Class)
	err := r.db.NewSelect().Model(class).Where(where, arg).Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("select class: %w", err)
	}
	return class, nil
}

func (r *repository) UpdateName(ctx context.Context, id, name string) (*Class, error) {
	start := time.Now()
	class := new(Class)
	_, err := r.db.NewUpdate().
		Model(class).
		Set("name = ?", name).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	r.record(ctx, "update", start, err)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrClassNotFound
	case db.IsUniqueViolation(err):
		return nil, ErrClassNameExists
	case err != nil:
		return nil, fmt.Errorf("update class %s: %w", id, err)
	}
	if class.ID == "" {
		return nil, ErrClassNotFound
	}
	return class, nil
}

func (r *repository) DeleteEmpty(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model((*Class)(nil)).
		Where("id = ?", id).
		Where("cardinality(session_ids) = 0").
		Exec(ctx)
	r.record(ctx, "delete", start, err)

	if err != nil {
		return false, fmt.Errorf("delete class %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *repository) AddMember(ctx context.Context, classID string, list MemberList, userID string) (bool, error) {
	return r.push(ctx, classID, string(list), userID)
}

func (r *repository) RemoveMember(ctx context.Context, classID string, list MemberList, userID string) (bool, error) {
	return r.pull(ctx, classID, string(list), userID)
}

func (r *repository) AddSession(ctx context.Context, classID, sessionID string) (bool, error) {
	return r.push(ctx, classID, "session_ids", sessionID)
}

func (r *repository) RemoveSession(ctx context.Context, classID, sessionID string) (bool, error) {
	return r.pull(ctx, classID, "session_ids", sessionID)
}

// push appends value to column unless it is already there.
func (r *repository) push(ctx context.Context, classID, column, value string) (bool, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Class)(nil)).
		Set("? = array_append(?, ?)", bun.Ident(column), bun.Ident(column), value).
		Set("updated_at = current_timestamp").
		Where("id = ?", classID).
		Where("NOT (? = ANY(?))", value, bun.Ident(column)).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return false, fmt.Errorf("push %s into classes.%s: %w", value, column, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *repository) pull(ctx context.Context, classID, column, value string) (bool, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Class)(nil)).
		Set("? = array_remove(?, ?)", bun.Ident(column), bun.Ident(column), value).
		Set("updated_at = current_timestamp").
		Where("id = ?", classID).
		Where("? = ANY(?)", value, bun.Ident(column)).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return false, fmt.Errorf("pull %s from classes.%s: %w", value, column, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *repository) RemoveMemberEverywhere(ctx context.Context, userID string) error {
	start := time.Now()
	_, err := r.db.NewUpdate().
		Model((*Class)(nil)).
		Set("student_ids = array_remove(student_ids, ?)", userID).
		Set("teaching_assistant_ids = array_remove(teaching_assistant_ids, ?)", userID).
		Set("updated_at = current_timestamp").
		Where("? = ANY(student_ids) OR ? = ANY(teaching_assistant_ids)", userID, userID).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return fmt.Errorf("remove user %s from classes: %w", userID, err)
	}
	return nil
}
