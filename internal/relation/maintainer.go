// Package relation keeps the references between users, classes, sessions and
// points consistent on both sides. Every operation checks its guards first and
// then writes both sides in one transaction.
package relation

import (
	"context"
	"errors"
	"log/slog"

	"student-manager/common/apperr"
	commonmetrics "student-manager/common/metrics"
	"student-manager/internal/class"
	"student-manager/internal/db"
	"student-manager/internal/events"
	"student-manager/internal/metrics"
	"student-manager/internal/point"
	"student-manager/internal/session"
	"student-manager/internal/user"
	"student-manager/internal/validate"

	"github.com/uptrace/bun"
)

var (
	ErrAdminNotAllowed     = apperr.Conflict("Can't Add Admin To Class")
	ErrStudentInClass      = apperr.Conflict("Student Already In Class")
	ErrAssistantInClass    = apperr.Conflict("Teaching Assistant Already In Class")
	ErrUserNotInClass      = apperr.Conflict("User Not In Class To Remove")
	ErrRoleInvalidToUnlink = apperr.Conflict("User Role Invalid To Remove From Class")

	ErrUserHasClass         = apperr.Conflict("User Already Has This Class")
	ErrUserLacksClass       = apperr.Conflict("User Doesn't Have This Class")
	ErrAdminCantHaveClass   = apperr.Conflict("Admin Can't Have Class")
	ErrAdminCantRemoveClass = apperr.Conflict("Admin Can't Remove Class")
)

type Maintainer struct {
	db        *bun.DB
	users     user.Repository
	classes   class.Repository
	sessions  session.Repository
	points    point.Repository
	dbMetrics *commonmetrics.Metrics
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    *slog.Logger
}

func NewMaintainer(
	database *bun.DB,
	users user.Repository,
	classes class.Repository,
	sessions session.Repository,
	points point.Repository,
	dbMetrics *commonmetrics.Metrics,
	m *metrics.Metrics,
	publisher events.Publisher,
	logger *slog.Logger,
) *Maintainer {
	return &Maintainer{
		db:        database,
		users:     users,
		classes:   classes,
		sessions:  sessions,
		points:    points,
		dbMetrics: dbMetrics,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
	}
}

// membershipListFor maps a role to the class list that holds it.
func membershipListFor(role user.Role) (class.MemberList, error) {
	switch role {
	case user.RoleStudent:
		return class.Students, nil
	case user.RoleTeachingAssistant:
		return class.TeachingAssistants, nil
	case user.RoleAdmin:
		return "", ErrAdminNotAllowed
	}
	return "", user.ErrRoleInvalid
}

func alreadyMember(list class.MemberList) error {
	if list == class.TeachingAssistants {
		return ErrAssistantInClass
	}
	return ErrStudentInClass
}

// isMember reports whether either side holds the reference. Both class lists
// count so a reference filed under the wrong role is still found.
func isMember(c *class.Class, u *user.User) bool {
	return u.HasClass(c.ID) ||
		c.HasMember(class.Students, u.ID) ||
		c.HasMember(class.TeachingAssistants, u.ID)
}

// load fetches both ends of a membership, class first.
func (m *Maintainer) load(ctx context.Context, classID, userID string) (*class.Class, *user.User, error) {
	c, err := validate.Existing[class.Class](ctx, m.classes, classID, class.ErrClassIDInvalid)
	if err != nil {
		return nil, nil, err
	}
	u, err := validate.Existing[user.User](ctx, m.users, userID, user.ErrUserIDInvalid)
	if err != nil {
		return nil, nil, err
	}
	return c, u, nil
}

func (m *Maintainer) LinkUserToClass(ctx context.Context, classID, userID string) (*class.Class, error) {
	c, u, err := m.load(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	list, err := membershipListFor(u.Role)
	if err != nil {
		return nil, err
	}
	if isMember(c, u) {
		return nil, alreadyMember(list)
	}

	var updated *class.Class
	err = db.RunInTx(ctx, m.db, m.dbMetrics, "link_user_to_class", func(ctx context.Context, tx bun.Tx) error {
		if err := m.link(ctx, tx, c.ID, u, list, alreadyMember(list)); err != nil {
			return err
		}
		var err error
		updated, err = m.classes.WithTx(tx).GetByID(ctx, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.linked(ctx, c.ID, u)
	return updated, nil
}

func (m *Maintainer) LinkClassToUser(ctx context.Context, userID, classID string) (*user.User, error) {
	c, u, err := m.load(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if isMember(c, u) {
		return nil, ErrUserHasClass
	}
	list, err := membershipListFor(u.Role)
	if errors.Is(err, ErrAdminNotAllowed) {
		return nil, ErrAdminCantHaveClass
	}
	if err != nil {
		return nil, err
	}

	var updated *user.User
	err = db.RunInTx(ctx, m.db, m.dbMetrics, "link_class_to_user", func(ctx context.Context, tx bun.Tx) error {
		if err := m.link(ctx, tx, c.ID, u, list, ErrUserHasClass); err != nil {
			return err
		}
		var err error
		updated, err = m.users.WithTx(tx).GetByID(ctx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.linked(ctx, c.ID, u)
	return updated, nil
}

// link writes both sides. A push that changes nothing means a concurrent
// request linked the pair first or changed the user's role.
func (m *Maintainer) link(ctx context.Context, tx bun.Tx, classID string, u *user.User, list class.MemberList, conflict error) error {
	added, err := m.classes.WithTx(tx).AddMember(ctx, classID, list, u.ID)
	if err != nil {
		return err
	}
	if !added {
		return conflict
	}
	added, err = m.users.WithTx(tx).AddClass(ctx, u.ID, classID, u.Role)
	if err != nil {
		return err
	}
	if !added {
		return conflict
	}
	return nil
}

func (m *Maintainer) UnlinkUserFromClass(ctx context.Context, classID, userID string) (*class.Class, error) {
	c, u, err := m.load(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember(c, u) {
		return nil, ErrUserNotInClass
	}
	list, err := membershipListFor(u.Role)
	if err != nil {
		return nil, ErrRoleInvalidToUnlink
	}

	var updated *class.Class
	err = db.RunInTx(ctx, m.db, m.dbMetrics, "unlink_user_from_class", func(ctx context.Context, tx bun.Tx) error {
		if err := m.unlink(ctx, tx, c.ID, u.ID, list); err != nil {
			return err
		}
		var err error
		updated, err = m.classes.WithTx(tx).GetByID(ctx, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.unlinked(ctx, c.ID, u)
	return updated, nil
}

func (m *Maintainer) UnlinkClassFromUser(ctx context.Context, userID, classID string) (*user.User, error) {
	c, u, err := m.load(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember(c, u) {
		return nil, ErrUserLacksClass
	}
	list, err := membershipListFor(u.Role)
	if errors.Is(err, ErrAdminNotAllowed) {
		return nil, ErrAdminCantRemoveClass
	}
	if err != nil {
		return nil, err
	}

	var updated *user.User
	err = db.RunInTx(ctx, m.db, m.dbMetrics, "unlink_class_from_user", func(ctx context.Context, tx bun.Tx) error {
		if err := m.unlink(ctx, tx, c.ID, u.ID, list); err != nil {
			return err
		}
		var err error
		updated, err = m.users.WithTx(tx).GetByID(ctx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.unlinked(ctx, c.ID, u)
	return updated, nil
}

// unlink pulls both sides. Pulls are idempotent so a side that already
// drifted is repaired rather than rejected.
func (m *Maintainer) unlink(ctx context.Context, tx bun.Tx, classID, userID string, list class.MemberList) error {
	if _, err := m.classes.WithTx(tx).RemoveMember(ctx, classID, list, userID); err != nil {
		return err
	}
	_, err := m.users.WithTx(tx).RemoveClass(ctx, userID, classID)
	return err
}

func (m *Maintainer) linked(ctx context.Context, classID string, u *user.User) {
	m.metrics.RecordMembershipLinked(ctx, string(u.Role))
	ev := events.New(events.MembershipLinked, u.ID, classID)
	ev.Role = string(u.Role)
	events.Emit(ctx, m.publisher, m.logger, ev)
}

func (m *Maintainer) unlinked(ctx context.Context, classID string, u *user.User) {
	m.metrics.RecordMembershipUnlinked(ctx, string(u.Role))
	ev := events.New(events.MembershipUnlinked, u.ID, classID)
	ev.Role = string(u.Role)
	events.Emit(ctx, m.publisher, m.logger, ev)
}

// DeleteUser removes the user from every class list, deletes the user's points
// and then the user.
func (m *Maintainer) DeleteUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := validate.Existing[user.User](ctx, m.users, userID, user.ErrUserIDInvalid)
	if err != nil {
		return nil, err
	}

	var removed []point.Point
	err = db.RunInTx(ctx, m.db, m.dbMetrics, "delete_user", func(ctx context.Context, tx bun.Tx) error {
		if err := m.classes.WithTx(tx).RemoveMemberEverywhere(ctx, u.ID); err != nil {
			return err
		}
		var err error
		if removed, err = m.points.WithTx(tx).DeleteByStudent(ctx, u.ID); err != nil {
			return err
		}
		sessions := m.sessions.WithTx(tx)
		for _, p := range removed {
			if _, err := sessions.RemovePoint(ctx, p.SessionID, p.ID); err != nil {
				return err
			}
		}
		return m.users.WithTx(tx).Delete(ctx, u.ID)
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "user deleted", "user_id", u.ID, "classes", len(u.ClassIDs), "points", len(removed))
	events.Emit(ctx, m.publisher, m.logger, events.New(events.UserDeleted, u.ID, ""))
	return u, nil
}

// DeleteSession pulls the session from its class, deletes its points and then
// the session.
func (m *Maintainer) DeleteSession(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := validate.Existing[session.Session](ctx, m.sessions, sessionID, session.ErrSessionIDInvalid)
	if err != nil {
		return nil, err
	}

	var removed []point.Point
	err = db.RunInTx(ctx, m.db, m.dbMetrics, "delete_session", func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.classes.WithTx(tx).RemoveSession(ctx, s.ClassID, s.ID); err != nil {
			return err
		}
		var err error
		if removed, err = m.points.WithTx(tx).DeleteBySession(ctx, s.ID); err != nil {
			return err
		}
		return m.sessions.WithTx(tx).Delete(ctx, s.ID)
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "session deleted", "session_id", s.ID, "class_id", s.ClassID, "points", len(removed))
	events.Emit(ctx, m.publisher, m.logger, events.New(events.SessionDeleted, s.ID, s.ClassID))
	return s, nil
}
