package session

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftEvening   Shift = "evening"
)

func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftEvening:
		return true
	}
	return false
}

type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID           string    `bun:"id,pk,type:uuid" json:"id"`
	SessionIndex int       `bun:"session_index,notnull" json:"sessionIndex"`
	Name         string    `bun:"name,notnull" json:"name"`
	ClassID      string    `bun:"class_id,type:uuid,notnull" json:"classId"`
	SessionDate  time.Time `bun:"session_date,notnull" json:"sessionDate"`
	Shift        Shift     `bun:"shift,notnull" json:"shift"`
	Points       []string  `bun:"points,array,type:uuid[],notnull" json:"points"`
	Title        *string   `bun:"title" json:"title,omitempty"`
	Content      *string   `bun:"content" json:"content,omitempty"`
	Note         *string   `bun:"note" json:"note,omitempty"`
}

var _ bun.AfterScanRowHook = (*Session)(nil)

func (s *Session) AfterScanRow(context.Context) error {
	if s.Points == nil {
		s.Points = []string{}
	}
	return nil
}

type CreateSessionRequest struct {
	SessionIndex int     `json:"sessionIndex" validate:"required,min=1"`
	Name         *string `json:"name"`
	SessionDate  string  `json:"sessionDate" validate:"required"`
	Shift        Shift   `json:"shift" validate:"required,oneof=morning afternoon evening"`
	Title        *string `json:"title"`
	Content      *string `json:"content"`
	Note         *string `json:"note"`
}

// UpdateSessionRequest is a partial update. classId and points are maintained
// by the server.
type UpdateSessionRequest struct {
	SessionIndex *int    `json:"sessionIndex" validate:"omitempty,min=1"`
	Name         *string `json:"name" validate:"omitempty,min=1"`
	SessionDate  *string `json:"sessionDate"`
	Shift        *Shift  `json:"shift" validate:"omitempty,oneof=morning afternoon evening"`
	Title        *string `json:"title"`
	Content      *string `json:"content"`
	Note         *string `json:"note"`
}
