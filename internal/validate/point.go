package validate

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"student-manager/common/apperr"
)

const (
	MinPoint = 0
	MaxPoint = 10
)

var ErrPointRange = apperr.Validation("Point Must Be Between 0 And 10")

// PointFields is the scoring part of a point payload. Each field keeps the raw
// JSON so absent, null and "" can be told apart from 0.
type PointFields struct {
	AttendancePoint   json.RawMessage `json:"attendancePoint"`
	HomeworkPoint     json.RawMessage `json:"homeworkPoint"`
	MidTestPoint      json.RawMessage `json:"midTestPoint"`
	FinalProjectPoint json.RawMessage `json:"finalProjectPoint"`
}

// Scores holds the parsed fields; nil means not supplied.
type Scores struct {
	Attendance   *float64
	Homework     *float64
	MidTest      *float64
	FinalProject *float64
}

// PointPayload validates all four fields the same way for create and update.
func PointPayload(f PointFields) (Scores, error) {
	var (
		s   Scores
		err error
	)
	if s.Attendance, err = PointField("Attendance Point", f.AttendancePoint); err != nil {
		return Scores{}, err
	}
	if s.Homework, err = PointField("Homework Point", f.HomeworkPoint); err != nil {
		return Scores{}, err
	}
	if s.MidTest, err = PointField("Mid Test Point", f.MidTestPoint); err != nil {
		return Scores{}, err
	}
	if s.FinalProject, err = PointField("Final Project Point", f.FinalProjectPoint); err != nil {
		return Scores{}, err
	}
	return s, nil
}

// PointField accepts a JSON number or numeric string in [0,10]. Absent, null
// and empty values return nil.
func PointField(label string, raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, notNumber(label)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
	} else {
		text = string(raw)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, notNumber(label)
	}
	if v < MinPoint || v > MaxPoint {
		return nil, ErrPointRange
	}
	return &v, nil
}

func notNumber(label string) error {
	return apperr.Validation(label + " Must Be Number")
}
