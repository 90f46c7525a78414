package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleStudent           Role = "student"
	RoleTeachingAssistant Role = "teachingAssistant"
	RoleAdmin             Role = "admin"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string      `bun:"id,pk,type:uuid" json:"id"`
	Username    string      `bun:"username,notnull" json:"username"`
	Email       string      `bun:"email,notnull,unique" json:"email"`
	Password    string      `bun:"password,notnull" json:"-"`
	Role        Role        `bun:"role,notnull" json:"role"`
	DateOfBirth time.Time   `bun:"date_of_birth,notnull" json:"dateOfBirth"`
	Address     string      `bun:"address,notnull" json:"address"`
	PhoneNumber PhoneNumber `bun:"phone_number,notnull" json:"phoneNumber"`
	Note        *string     `bun:"note" json:"note,omitempty"`
	ClassIDs    []string    `bun:"class_ids,array,type:uuid[],notnull" json:"classIds"`
	CreatedAt   time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

var _ bun.AfterScanRowHook = (*User)(nil)

func (u *User) AfterScanRow(context.Context) error {
	if u.ClassIDs == nil {
		u.ClassIDs = []string{}
	}
	return nil
}

func (u *User) HasClass(classID string) bool {
	for _, id := range u.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// PhoneNumber accepts both JSON strings and numbers.
type PhoneNumber string

func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PhoneNumber(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("phone number must be a string or number: %w", err)
	}
	*p = PhoneNumber(n.String())
	return nil
}

type CreateUserRequest struct {
	Username    string      `json:"username" validate:"required"`
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required"`
	Role        Role        `json:"role" validate:"required"`
	DateOfBirth string      `json:"dateOfBirth" validate:"required"`
	Address     string      `json:"address" validate:"required"`
	PhoneNumber PhoneNumber `json:"phoneNumber" validate:"required"`
	Note        *string     `json:"note"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged.
// classIds is owned by the membership routes and cannot be patched.
type UpdateUserRequest struct {
	Username    *string      `json:"username" validate:"omitempty,min=1"`
	Email       *string      `json:"email" validate:"omitempty,email"`
	Password    *string      `json:"password" validate:"omitempty,min=1"`
	Role        *Role        `json:"role"`
	DateOfBirth *string      `json:"dateOfBirth"`
	Address     *string      `json:"address" validate:"omitempty,min=1"`
	PhoneNumber *PhoneNumber `json:"phoneNumber" validate:"omitempty,min=1"`
	Note        *string      `json:"note"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeachingAssistant, RoleAdmin:
		return true
	}
	return false
}
