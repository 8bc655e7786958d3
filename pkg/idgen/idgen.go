// Package idgen mints the short public identifiers of the marketplace:
// support codes for products and batch numbers for packages.
package idgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	SupportCodeLength = 8
	BatchCodeLength   = 10
	BatchPrefix       = "BATCH-"

	// DefaultMaxAttempts caps the regenerate-on-collision loop.
	DefaultMaxAttempts = 5
)

var (
	ErrDuplicateIdentifier = errors.New("could not mint a unique identifier")

	supportCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
	batchNumberPattern = regexp.MustCompile(`^BATCH-[A-Z0-9]{10}$`)
)

// Generator produces one candidate identifier.
type Generator func() string

// ExistsFunc reports whether a candidate is already taken.
type ExistsFunc func(candidate string) (bool, error)

// token takes the first n hex digits of a random (v4) UUID, upper-cased.
func token(n int) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:n])
}

// SupportCode returns an 8-character uppercase token, e.g. "3F9A0C1B".
func SupportCode() string {
	return token(SupportCodeLength)
}

// BatchNumber returns a token of the form BATCH-XXXXXXXXXX.
func BatchNumber() string {
	return BatchPrefix + token(BatchCodeLength)
}

func IsSupportCode(s string) bool {
	return supportCodePattern.MatchString(s)
}

func IsBatchNumber(s string) bool {
	return batchNumberPattern.MatchString(s)
}

// Unique draws candidates from gen until exists reports a free one.
// It gives up after maxAttempts collisions with ErrDuplicateIdentifier.
func Unique(gen Generator, exists ExistsFunc, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := gen()
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrDuplicateIdentifier, maxAttempts)
}
