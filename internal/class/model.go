package class

import (
	"context"
	"slices"
	"time"

	"github.com/uptrace/bun"
)

type Class struct {
	bun.BaseModel `bun:"table:classes,alias:c"`

	ID                   string    `bun:"id,pk,type:uuid" json:"id"`
	Name                 string    `bun:"name,notnull,unique" json:"name"`
	SessionIDs           []string  `bun:"session_ids,array,type:uuid[],notnull" json:"sessionIds"`
	StudentIDs           []string  `bun:"student_ids,array,type:uuid[],notnull" json:"studentIds"`
	TeachingAssistantIDs []string  `bun:"teaching_assistant_ids,array,type:uuid[],notnull" json:"teachingAssistantIds"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt            time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

var _ bun.AfterScanRowHook = (*Class)(nil)

func (c *Class) AfterScanRow(context.Context) error {
	if c.SessionIDs == nil {
		c.SessionIDs = []string{}
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
	if c.TeachingAssistantIDs == nil {
		c.TeachingAssistantIDs = []string{}
	}
	return nil
}

// MemberList names one of the role-partitioned membership columns.
type MemberList string

const (
	Students           MemberList = "student_ids"
	TeachingAssistants MemberList = "teaching_assistant_ids"
)

func (c *Class) Members(list MemberList) []string {
	switch list {
	case Students:
		return c.StudentIDs
	case TeachingAssistants:
		return c.TeachingAssistantIDs
	}
	return nil
}

func (c *Class) HasMember(list MemberList, userID string) bool {
	return slices.Contains(c.Members(list), userID)
}

type CreateClassRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateClassRequest only renames; the id lists are maintained by the server.
type UpdateClassRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1"`
}
