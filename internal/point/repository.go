package point

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

const table = "points"

type Repository interface {
	Create(ctx context.Context, point *Point) (*Point, error)
	GetAll(ctx context.Context) ([]Point, error)
	GetByID(ctx context.Context, id string) (*Point, error)
	GetByPair(ctx context.Context, sessionID, studentID string) (*Point, error)
	Update(ctx context.Context, point *Point) (*Point, error)
	Delete(ctx context.Context, id string) error

	// DeleteBySession and DeleteByStudent return the removed points so their
	// references can be pulled.
	DeleteBySession(ctx context.Context, sessionID string) ([]Point, error)
	DeleteByStudent(ctx context.Context, studentID string) ([]Point, error)

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

func (r *repository) Create(ctx context.Context, point *Point) (*Point, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(point).Returning("*").Exec(ctx)
	r.record(ctx, "insert", start, err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrStudentHasPoint
		}
		return nil, fmt.Errorf("insert point: %w", err)
	}
	return point, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Point, error) {
	start := time.Now()
	points := make([]Point, 0)
	err := r.db.NewSelect().Model(&points).Order("session_id ASC", "student_id ASC").Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		return nil, fmt.Errorf("select points: %w", err)
	}
	return points, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Point, error) {
	start := time.Now()
	point := new(Point)
	err := r.db.NewSelect().Model(point).Where("id = ?", id).Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("select point %s: %w", id, err)
	}
	return point, nil
}

func (r *repository) GetByPair(ctx context.Context, sessionID, studentID string) (*Point, error) {
	start := time.Now()
	point := new(Point)
	err := r.db.NewSelect().
		Model(point).
		Where("session_id = ?", sessionID).
		Where("student_id = ?", studentID).
		Scan(ctx)
	r.record(ctx, "select", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("select point of student %s in session %s: %w", studentID, sessionID, err)
	}
	return point, nil
}

func (r *repository) Update(ctx context.Context, point *Point) (*Point, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(point).
		Column("session_id", "student_id", "attendance_point", "homework_point", "mid_test_point", "final_project_point", "homework_completion_time").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.record(ctx, "update", start, err)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrPointNotFound
	case db.IsUniqueViolation(err):
		return nil, ErrStudentHasPoint
	case err != nil:
		return nil, fmt.Errorf("update point %s: %w", point.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrPointNotFound
	}
	return point, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Point)(nil)).Where("id = ?", id).Exec(ctx)
	r.record(ctx, "delete", start, err)

	if err != nil {
		return fmt.Errorf("delete point %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrPointNotFound
	}
	return nil
}

func (r *repository) DeleteBySession(ctx context.Context, sessionID string) ([]Point, error) {
	return r.deleteWhere(ctx, "session_id = ?", sessionID)
}

func (r *repository) DeleteByStudent(ctx context.Context, studentID string) ([]Point, error) {
	return r.deleteWhere(ctx, "student_id = ?", studentID)
}

func (r *repository) deleteWhere(ctx context.Context, where string, arg any) ([]Point, error) {
	start := time.Now()
	points := make([]Point, 0)
	_, err := r.db.NewDelete().
		Model(&points).
		Where(where, arg).
		Returning("*").
		Exec(ctx)
	r.record(ctx, "delete", start, err)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete points: %w", err)
	}
	return points, nil
}
