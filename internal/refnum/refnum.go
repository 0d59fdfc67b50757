// Package refnum provides ticket reference number generation and
// validation utilities.
package refnum

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix is the fixed reference number prefix printed on tickets.
const Prefix = "TKT-"

// Reference format: TKT-<unix millis>, optionally followed by a dash
// and an 8-hex disambiguation suffix.
var refRegex = regexp.MustCompile(`^TKT-\d{10,16}(-[0-9a-f]{8})?$`)

// New generates a reference number from the current wall clock,
// e.g. "TKT-1717236000123".
func New(now time.Time) string {
	return fmt.Sprintf("%s%d", Prefix, now.UnixMilli())
}

// NewUnique generates a reference number with a random suffix. Used on
// retry after a duplicate-reference failure, when two transactions land
// on the same millisecond.
func NewUnique(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s%d-%s", Prefix, now.UnixMilli(), suffix)
}

// IsValid checks if a string is a well-formed reference number.
func IsValid(s string) bool {
	return refRegex.MatchString(s)
}

// Validate returns an error if the string is not a well-formed
// reference number.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid reference number format: %q", s)
	}
	return nil
}
