package point

import (
	"time"

	"student-manager/internal/validate"

	"github.com/uptrace/bun"
)

type Point struct {
	bun.BaseModel `bun:"table:points,alias:p"`

	ID                     string     `bun:"id,pk,type:uuid" json:"id"`
	SessionID              string     `bun:"session_id,type:uuid,notnull" json:"sessionId"`
	StudentID              string     `bun:"student_id,type:uuid,notnull" json:"studentId"`
	AttendancePoint        float64    `bun:"attendance_point,notnull,default:0" json:"attendancePoint"`
	HomeworkPoint          float64    `bun:"homework_point,notnull,default:0" json:"homeworkPoint"`
	MidTestPoint           float64    `bun:"mid_test_point,notnull,default:0" json:"midTestPoint"`
	FinalProjectPoint      float64    `bun:"final_project_point,notnull,default:0" json:"finalProjectPoint"`
	HomeworkCompletionTime *time.Time `bun:"homework_completion_time" json:"homeworkCompletionTime,omitempty"`
}

// apply copies the supplied scores and leaves the rest unchanged.
func (p *Point) apply(s validate.Scores) {
	if s.Attendance != nil {
		p.AttendancePoint = *s.Attendance
	}
	if s.Homework != nil {
		p.HomeworkPoint = *s.Homework
	}
	if s.MidTest != nil {
		p.MidTestPoint = *s.MidTest
	}
	if s.FinalProject != nil {
		p.FinalProjectPoint = *s.FinalProject
	}
}

type CreatePointRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
	validate.PointFields
	HomeworkCompletionTime *string `json:"homeworkCompletionTime"`
}

// UpdatePointRequest is a partial update. Moving a point to another session
// or student keeps the pair unique.
type UpdatePointRequest struct {
	SessionID *string `json:"sessionId"`
	StudentID *string `json:"studentId"`
	validate.PointFields
	HomeworkCompletionTime *string `json:"homeworkCompletionTime"`
}
