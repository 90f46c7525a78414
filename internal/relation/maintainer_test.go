package relation_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	commonmetrics "student-manager/common/metrics"
	"student-manager/internal/class"
	"student-manager/internal/events"
	"student-manager/internal/point"
	"student-manager/internal/relation"
	"student-manager/internal/schema"
	"student-manager/internal/session"
	"student-manager/internal/user"
	"student-manager/testing/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db       *bun.DB
	users    user.Repository
	classes  class.Repository
	sessions session.Repository
	points   point.Repository
}

func (f fixture) user(t *testing.T, role user.Role) *user.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), &user.User{
		ID:          uuid.NewString(),
		Username:    string(role),
		Email:       uuid.NewString() + "@example.com",
		Password:    "hash",
		Role:        role,
		DateOfBirth: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Address:     "Hanoi",
		PhoneNumber: "0123456789",
		ClassIDs:    []string{},
	})
	require.NoError(t, err)
	return u
}

func (f fixture) class(t *testing.T, name string) *class.Class {
	t.Helper()
	c, err := f.classes.Create(context.Background(), &class.Class{
		ID:                   uuid.NewString(),
		Name:                 name,
		SessionIDs:           []string{},
		StudentIDs:           []string{},
		TeachingAssistantIDs: []string{},
	})
	require.NoError(t, err)
	return c
}

func (f fixture) session(t *testing.T, classID string, index int) *session.Session {
	t.Helper()
	ctx := context.Background()
	s, err := f.sessions.Create(ctx, &session.Session{
		ID:           uuid.NewString(),
		SessionIndex: index,
		Name:         session.DefaultName(index),
		ClassID:      classID,
		SessionDate:  time.Date(2024, 9, index, 0, 0, 0, 0, time.UTC),
		Shift:        session.ShiftMorning,
		Points:       []string{},
	})
	require.NoError(t, err)
	_, err = f.classes.AddSession(ctx, classID, s.ID)
	require.NoError(t, err)
	return s
}

func (f fixture) point(t *testing.T, sessionID, studentID string) *point.Point {
	t.Helper()
	ctx := context.Background()
	p, err := f.points.Create(ctx, &point.Point{ID: uuid.NewString(), SessionID: sessionID, StudentID: studentID, AttendancePoint: 8})
	require.NoError(t, err)
	_, err = f.sessions.AddPoint(ctx, sessionID, p.ID)
	require.NoError(t, err)
	return p
}

func TestMaintainer(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.Migrate(t, schema.Migrate)

	mockMetrics := commonmetrics.NewMock()
	f := fixture{
		db:       pgContainer.DB,
		users:    user.NewRepository(pgContainer.DB, mockMetrics),
		classes:  class.NewRepository(pgContainer.DB, mockMetrics),
		sessions: session.NewRepository(pgContainer.DB, mockMetrics),
		points:   point.NewRepository(pgContainer.DB, mockMetrics),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newMaintainer := func() (*relation.Maintainer, *recordingPublisher) {
		publisher := &recordingPublisher{}
		return relation.NewMaintainer(f.db, f.users, f.classes, f.sessions, f.points, mockMetrics, nil, publisher, logger), publisher
	}
	ctx := context.Background()

	t.Run("LinkUserToClass_BothSides", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, publisher := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")

		updated, err := m.LinkUserToClass(ctx, c.ID, student.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{student.ID}, updated.StudentIDs)
		assert.Empty(t, updated.TeachingAssistantIDs)

		reloaded, err := f.users.GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID}, reloaded.ClassIDs)
		assert.Equal(t, []events.Type{events.MembershipLinked}, publisher.types())
	})

	t.Run("LinkUserToClass_TeachingAssistantList", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		ta := f.user(t, user.RoleTeachingAssistant)
		c := f.class(t, "C1")

		updated, err := m.LinkUserToClass(ctx, c.ID, ta.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{ta.ID}, updated.TeachingAssistantIDs)
		assert.Empty(t, updated.StudentIDs)
	})

	t.Run("LinkUserToClass_SecondLinkConflicts", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		student := f.user(t, user.RoleStudent)
		ta := f.user(t, user.RoleTeachingAssistant)
		c := f.class(t, "C1")

		_, err := m.LinkUserToClass(ctx, c.ID, student.ID)
		require.NoError(t, err)
		_, err = m.LinkUserToClass(ctx, c.ID, student.ID)
		assert.ErrorIs(t, err, relation.ErrStudentInClass)

		_, err = m.LinkUserToClass(ctx, c.ID, ta.ID)
		require.NoError(t, err)
		_, err = m.LinkUserToClass(ctx, c.ID, ta.ID)
		assert.ErrorIs(t, err, relation.ErrAssistantInClass)

		_, err = m.LinkClassToUser(ctx, student.ID, c.ID)
		assert.ErrorIs(t, err, relation.ErrUserHasClass)

		reloaded, err := f.classes.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, reloaded.StudentIDs, 1)
		assert.Len(t, reloaded.TeachingAssistantIDs, 1)
	})

	t.Run("Link_AdminRejected", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, publisher := newMaintainer()
		admin := f.user(t, user.RoleAdmin)
		c := f.class(t, "C1")

		_, err := m.LinkUserToClass(ctx, c.ID, admin.ID)
		assert.ErrorIs(t, err, relation.ErrAdminNotAllowed)
		_, err = m.LinkClassToUser(ctx, admin.ID, c.ID)
		assert.ErrorIs(t, err, relation.ErrAdminCantHaveClass)

		reloaded, err := f.users.GetByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.Empty(t, reloaded.ClassIDs)
		assert.Empty(t, publisher.types())
	})

	t.Run("Link_MissingRecords", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")

		_, err := m.LinkUserToClass(ctx, uuid.NewString(), student.ID)
		assert.ErrorIs(t, err, class.ErrClassNotFound)
		_, err = m.LinkUserToClass(ctx, c.ID, uuid.NewString())
		assert.ErrorIs(t, err, user.ErrUserNotFound)
		_, err = m.LinkUserToClass(ctx, "nope", student.ID)
		assert.ErrorIs(t, err, class.ErrClassIDInvalid)
		_, err = m.LinkClassToUser(ctx, "nope", c.ID)
		assert.ErrorIs(t, err, user.ErrUserIDInvalid)

		// the class id is checked before the user id on both route families
		_, err = m.LinkClassToUser(ctx, "nope", "nope")
		assert.ErrorIs(t, err, class.ErrClassIDInvalid)
		_, err = m.UnlinkClassFromUser(ctx, uuid.NewString(), uuid.NewString())
		assert.ErrorIs(t, err, class.ErrClassNotFound)
	})

	t.Run("LinkUserToClass_ConcurrentSamePair", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")

		const workers = 8
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make(chan error, workers)
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := m.LinkUserToClass(ctx, c.ID, student.ID)
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, relation.ErrStudentInClass)
		}
		assert.Equal(t, 1, succeeded)

		reloadedClass, err := f.classes.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{student.ID}, reloadedClass.StudentIDs)

		reloadedUser, err := f.users.GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID}, reloadedUser.ClassIDs)
	})

	t.Run("RoleChange_GuardedInStore", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")

		// a role change read before the link committed must not land
		stale, err := f.users.GetByID(ctx, student.ID)
		require.NoError(t, err)
		_, err = m.LinkUserToClass(ctx, c.ID, student.ID)
		require.NoError(t, err)

		stale.Role = user.RoleAdmin
		_, err = f.users.Update(ctx, stale, true)
		assert.ErrorIs(t, err, user.ErrRoleLocked)

		reloaded, err := f.users.GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, reloaded.Role)

		_, err = f.users.Update(ctx, &user.User{ID: uuid.NewString()}, true)
		assert.ErrorIs(t, err, user.ErrUserNotFound)

		// a link read before a role change must not land either
		other := f.user(t, user.RoleStudent)
		other.Role = user.RoleTeachingAssistant
		_, err = f.users.Update(ctx, other, true)
		require.NoError(t, err)

		added, err := f.users.AddClass(ctx, other.ID, c.ID, user.RoleStudent)
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("LinkClassToUser_BothSides", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")

		updated, err := m.LinkClassToUser(ctx, student.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID}, updated.ClassIDs)

		reloaded, err := f.classes.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{student.ID}, reloaded.StudentIDs)
	})

	t.Run("Unlink_RemovesBothSides", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, publisher := newMaintainer()
		student := f.user(t, user.RoleStudent)
		ta := f.user(t, user.RoleTeachingAssistant)
		c := f.class(t, "C1")
		_, err := m.LinkUserToClass(ctx, c.ID, student.ID)
		require.NoError(t, err)
		_, err = m.LinkClassToUser(ctx, ta.ID, c.ID)
		require.NoError(t, err)

		updated, err := m.UnlinkUserFromClass(ctx, c.ID, student.ID)
		require.NoError(t, err)
		assert.Empty(t, updated.StudentIDs)

		updatedUser, err := m.UnlinkClassFromUser(ctx, ta.ID, c.ID)
		require.NoError(t, err)
		assert.Empty(t, updatedUser.ClassIDs)

		reloadedClass, err := f.classes.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, reloadedClass.StudentIDs)
		assert.Empty(t, reloadedClass.TeachingAssistantIDs)

		reloadedStudent, err := f.users.GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, reloadedStudent.ClassIDs)

		assert.Equal(t, []events.Type{
			events.MembershipLinked, events.MembershipLinked,
			events.MembershipUnlinked, events.MembershipUnlinked,
		}, publisher.types())
	})

	t.Run("Unlink_NotMember", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")

		_, err := m.UnlinkUserFromClass(ctx, c.ID, student.ID)
		assert.ErrorIs(t, err, relation.ErrUserNotInClass)
		_, err = m.UnlinkClassFromUser(ctx, student.ID, c.ID)
		assert.ErrorIs(t, err, relation.ErrUserLacksClass)

		admin := f.user(t, user.RoleAdmin)
		_, err = m.UnlinkUserFromClass(ctx, c.ID, admin.ID)
		assert.ErrorIs(t, err, relation.ErrUserNotInClass)
		_, err = m.UnlinkClassFromUser(ctx, admin.ID, c.ID)
		assert.ErrorIs(t, err, relation.ErrUserLacksClass)
	})

	t.Run("Unlink_AdminHoldingReference", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		admin := f.user(t, user.RoleAdmin)
		c := f.class(t, "C1")
		_, err := f.users.AddClass(ctx, admin.ID, c.ID, user.RoleAdmin)
		require.NoError(t, err)

		_, err = m.UnlinkClassFromUser(ctx, admin.ID, c.ID)
		assert.ErrorIs(t, err, relation.ErrAdminCantRemoveClass)
		_, err = m.UnlinkUserFromClass(ctx, c.ID, admin.ID)
		assert.ErrorIs(t, err, relation.ErrRoleInvalidToUnlink)
	})

	t.Run("Unlink_RepairsOneSidedReference", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")
		_, err := f.users.AddClass(ctx, student.ID, c.ID, user.RoleStudent)
		require.NoError(t, err)

		updated, err := m.UnlinkUserFromClass(ctx, c.ID, student.ID)
		require.NoError(t, err)
		assert.Empty(t, updated.StudentIDs)

		reloaded, err := f.users.GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, reloaded.ClassIDs)
	})

	t.Run("DeleteUser_Cascades", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, publisher := newMaintainer()
		student := f.user(t, user.RoleStudent)
		other := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")
		_, err := m.LinkUserToClass(ctx, c.ID, student.ID)
		require.NoError(t, err)
		_, err = m.LinkUserToClass(ctx, c.ID, other.ID)
		require.NoError(t, err)
		s := f.session(t, c.ID, 1)
		p := f.point(t, s.ID, student.ID)
		kept := f.point(t, s.ID, other.ID)

		deleted, err := m.DeleteUser(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, student.ID, deleted.ID)

		_, err = f.users.GetByID(ctx, student.ID)
		assert.ErrorIs(t, err, user.ErrUserNotFound)
		_, err = f.points.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, point.ErrPointNotFound)

		reloadedClass, err := f.classes.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{other.ID}, reloadedClass.StudentIDs)

		reloadedSession, err := f.sessions.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{kept.ID}, reloadedSession.Points)

		assert.Contains(t, publisher.types(), events.UserDeleted)
	})

	t.Run("DeleteUser_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, _ := newMaintainer()

		_, err := m.DeleteUser(ctx, uuid.NewString())
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("DeleteSession_Cascades", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, schema.Tables...)
		m, publisher := newMaintainer()
		student := f.user(t, user.RoleStudent)
		c := f.class(t, "C1")
		s1 := f.session(t, c.ID, 1)
		s2 := f.session(t, c.ID, 2)
		p := f.point(t, s1.ID, student.ID)

		deleted, err := m.DeleteSession(ctx, s1.ID)
		require.NoError(t, err)
		assert.Equal(t, s1.ID, deleted.ID)

		reloadedClass, err := f.classes.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{s2.ID}, reloadedClass.SessionIDs)

		_, err = f.sessions.GetByID(ctx, s1.ID)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
		_, err = f.points.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, point.ErrPointNotFound)

		assert.Equal(t, []events.Type{events.SessionDeleted}, publisher.types())
	})

	t.Run("DeleteSession_InvalidID", func(t *testing.T) {
		m, _ := newMaintainer()

		_, err := m.DeleteSession(ctx, "12")
		assert.ErrorIs(t, err, session.ErrSessionIDInvalid)
	})
}
