package material

import (
	"fmt"
	"strings"
)

const (
	// keyPrefix namespaces material cache keys so the local cache
	// database can host other payloads in the future.
	keyPrefix = "material"

	// keySeparator joins the key components. Subjects have their
	// whitespace collapsed to underscores before joining, so the
	// separator can never appear inside a component by accident.
	keySeparator = ":"

	// MinYearLevel and MaxYearLevel bound the academic year of a
	// material key. Brazilian medical programs run six years.
	MinYearLevel = 1
	MaxYearLevel = 6
)

// MaterialKey identifies one cacheable study artifact: a subject taught
// at an institution during a specific academic year.
//
// InstitutionID and SubjectName are case-sensitive. SubjectName is an
// opaque display string: it is normalized for keying only and must be
// passed onward to generation exactly as given.
type MaterialKey struct {
	// InstitutionID is the short institution identifier (e.g. "usp").
	InstitutionID string

	// SubjectName is the free-text subject as displayed to the user.
	SubjectName string

	// YearLevel is the academic year, 1 through 6.
	YearLevel int
}

// Validate checks that the key components are usable for a lookup.
func (k MaterialKey) Validate() error {
	if strings.TrimSpace(k.InstitutionID) == "" {
		return fmt.Errorf("material key: empty institution id")
	}
	if NormalizeSubject(k.SubjectName) == "" {
		return fmt.Errorf("material key: empty subject name")
	}
	if k.YearLevel < MinYearLevel || k.YearLevel > MaxYearLevel {
		return fmt.Errorf("material key: year level %d out of "+
			"range [%d, %d]", k.YearLevel, MinYearLevel,
			MaxYearLevel)
	}

	return nil
}

// CacheKey derives the canonical cache key for this material. Two keys
// whose subjects differ only in surrounding or internal whitespace map
// to the same cache key. The derivation is deterministic and has no
// failure modes; Validate gates whether the key is usable at all.
func (k MaterialKey) CacheKey() string {
	subject := strings.ReplaceAll(
		NormalizeSubject(k.SubjectName), " ", "_",
	)

	return strings.Join([]string{
		keyPrefix,
		k.InstitutionID,
		fmt.Sprintf("%d", k.YearLevel),
		subject,
	}, keySeparator)
}

// NormalizeSubject trims the subject and collapses internal runs of
// whitespace into single spaces. Case is preserved: identifiers are
// case-sensitive by contract.
func NormalizeSubject(subject string) string {
	return strings.Join(strings.Fields(subject), " ")
}
