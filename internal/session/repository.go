package session

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

const table = "sessions"

type Repository interface {
	Create(ctx context.Context, session *Session) (*Session, error)
	GetAll(ctx context.Context) ([]Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByClassID(ctx context.Context, classID string) ([]Session, error)
	Update(ctx context.Context, session *Session) (*Session, error)
	Delete(ctx context.Context, id string) error

	// Collides reports whether another session of the class already uses
	// index or date. excludeID is ignored when empty.
	Collides(ctx context.Context, classID string, index int, date time.Time, excludeID string) (bool, error)

	AddPoint(ctx context.Context, sessionID, pointID string) (bool, error)
	RemovePoint(ctx context.Context, sessionID, pointID string) (bool, error)

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

func (r *repository) Create(ctx context.Context, session *Session) (*Session, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(session).Returning("*").Exec(ctx)
	r.record(ctx, "insert", start, err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSessionNotUnique
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Session, error) {
	start := time.Now()
	sessions := make([]Session, 0)
	err := r.db.NewSelect().Model(&sessions).Order("class_id ASC", "session_index ASC").Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	return sessions, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Session, error) {
	start := time.Now()
	session := new(Session)
	err := r.db.NewSelect().Model(session).Where("id = ?", id).Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	return session, nil
}

func (r *repository) GetByClassID(ctx context.Context, classID string) ([]Session, error) {
	start := time.Now()
	sessions := make([]Session, 0)
	err := r.db.NewSelect().
		Model(&sessions).
		Where("class_id = ?", classID).
		Order("session_index ASC").
		Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		return nil, fmt.Errorf("select sessions of class %s: %w", classID, err)
	}
	return sessions, nil
}

func (r *repository) Update(ctx context.Context, session *Session) (*Session, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(session).
		Column("session_index", "name", "session_date", "shift", "title", "content", "note").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.record(ctx, "update", start, err)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrSessionNotFound
	case db.IsUniqueViolation(err):
		return nil, ErrSessionNotUnique
	case err != nil:
		return nil, fmt.Errorf("update session %s: %w", session.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Session)(nil)).Where("id = ?", id).Exec(ctx)
	r.record(ctx, "delete", start, err)

	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *repository) Collides(ctx context.Context, classID string, index int, date time.Time, excludeID string) (bool, error) {
	start := time.Now()
	q := r.db.NewSelect().
		Model((*Session)(nil)).
		Where("class_id = ?", classID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("session_index = ?", index).WhereOr("session_date = ?", date)
		})
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	exists, err := q.Exists(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		return false, fmt.Errorf("probe sessions of class %s: %w", classID, err)
	}
	return exists, nil
}

func (r *repository) AddPoint(ctx context.Context, sessionID, pointID string) (bool, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Session)(nil)).
		Set("points = array_append(points, ?)", pointID).
		Where("id = ?", sessionID).
		Where("NOT (? = ANY(points))", pointID).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return false, fmt.Errorf("add point %s to session %s: %w", pointID, sessionID, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *repository) RemovePoint(ctx context.Context, sessionID, pointID string) (bool, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Session)(nil)).
		Set("points = array_remove(points, ?)", pointID).
		Where("id = ?", sessionID).
		Where("? = ANY(points)", pointID).
		Exec(ctx)
	r.record(ctx, "update", start, err)

	if err != nil {
		return false, fmt.Errorf("remove point %s from session %s: %w", pointID, sessionID, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
