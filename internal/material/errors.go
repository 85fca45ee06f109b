package material

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuotaExceeded indicates the generation backend refused the
	// call because a rate or usage limit was reached. Retrying later
	// is the only remedy.
	ErrQuotaExceeded = errors.New("generation quota exceeded")

	// ErrGenerationFailed covers every other primary-generation
	// failure, including timeouts. An immediate retry is reasonable.
	ErrGenerationFailed = errors.New("generation failed")
)

// quotaMarkers are the substrings that identify a quota/rate-limit
// failure in a backend error message. Matching is case-insensitive.
var quotaMarkers = []string{
	"quota",
	"resource_exhausted",
	"rate limit",
	"429",
}

// ClassifyGenerationError maps a raw failure from the generation
// backend onto the two externally visible error kinds. The original
// error stays in the chain for diagnostics. A nil error maps to nil.
func ClassifyGenerationError(err error) error {
	if err == nil {
		return nil
	}

	// Already classified errors pass through unchanged so callers
	// can classify defensively at multiple layers.
	if errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrGenerationFailed) {

		return err
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}
