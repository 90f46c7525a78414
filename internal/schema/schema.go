// Package schema lists the tables and indexes of the service.
package schema

import (
	"context"

	"student-manager/internal/class"
	"student-manager/internal/db"
	"student-manager/internal/point"
	"student-manager/internal/session"
	"student-manager/internal/user"

	"github.com/uptrace/bun"
)

// Tables lists every table, children first.
var Tables = []string{"points", "sessions", "classes", "users"}

func Models() []any {
	return []any{
		(*user.User)(nil),
		(*class.Class)(nil),
		(*session.Session)(nil),
		(*point.Point)(nil),
	}
}

func Indexes() []db.Index {
	return []db.Index{
		{Model: (*session.Session)(nil), Name: "sessions_class_id_idx", Columns: []string{"class_id"}},
		{Model: (*session.Session)(nil), Name: "sessions_class_index_key", Columns: []string{"class_id", "session_index"}, Unique: true},
		{Model: (*session.Session)(nil), Name: "sessions_class_date_key", Columns: []string{"class_id", "session_date"}, Unique: true},
		{Model: (*point.Point)(nil), Name: "points_session_student_key", Columns: []string{"session_id", "student_id"}, Unique: true},
		{Model: (*point.Point)(nil), Name: "points_student_id_idx", Columns: []string{"student_id"}},
	}
}

func Migrate(ctx context.Context, database bun.IDB) error {
	return db.RunMigrations(ctx, database, Models(), Indexes())
}
