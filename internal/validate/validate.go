// Package validate holds the identifier, date and point-field checks shared by
// every entity service.
package validate

import (
	"context"
	"strings"
	"time"

	"student-manager/common/apperr"

	"github.com/google/uuid"
)

var ErrBadRequest = apperr.Validation("Bad Request")

// ID returns the canonical form of raw when it is a well-formed identifier,
// otherwise invalid.
func ID(raw string, invalid error) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", invalid
	}
	return id.String(), nil
}

// Finder is satisfied by every entity repository.
type Finder[T any] interface {
	GetByID(ctx context.Context, id string) (*T, error)
}

// Existing checks the format of raw and then loads the record. The finder's
// not-found error is returned unchanged.
func Existing[T any](ctx context.Context, finder Finder[T], raw string, invalid error) (*T, error) {
	id, err := ID(raw, invalid)
	if err != nil {
		return nil, err
	}
	return finder.GetByID(ctx, id)
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Date parses RFC 3339 timestamps and plain YYYY-MM-DD dates.
func Date(raw string, invalid error) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid
}
