package domain

import (
	"strconv"
	"strings"

	dErrors "charity/pkg/domain-errors"
)

// ProjectID identifies a registered charity project. Ids are assigned from 1;
// the zero value never names a real project.
type ProjectID uint64

// ParseProjectID parses a decimal project id from a trust boundary (path
// parameter, CLI argument). Zero, signs and non-digits are rejected.
func ParseProjectID(s string) (ProjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "project id is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "project id must be a positive integer")
	}
	if n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "project id must be a positive integer")
	}
	return ProjectID(n), nil
}

func (id ProjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsNil reports whether id is the unassigned zero id.
func (id ProjectID) IsNil() bool {
	return id == 0
}
