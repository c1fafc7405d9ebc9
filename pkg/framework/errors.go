package framework

import "fmt"

// Record kinds used in error reporting and persistence buckets.
const (
	KindPattern      = "pattern"
	KindRelationship = "relationship"
)

// DuplicateIDError is returned when an insertion names an id already present
// in the target store. No state changes when it is returned.
type DuplicateIDError struct {
	Kind string
	ID   string
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// DanglingReferenceError is returned when a relationship slot names a
// pattern that does not exist, or exists under a different dimension. The
// relationship is rejected atomically.
type DanglingReferenceError struct {
	RelationshipID string
	Slot           PatternType
	PatternID      string
}

func (e DanglingReferenceError) Error() string {
	return fmt.Sprintf("relationship %q references missing %s %q", e.RelationshipID, e.Slot, e.PatternID)
}

// OutOfRangeError reports a score outside [0.0, 1.0] at construction time.
type OutOfRangeError struct {
	Field string
	Value float64
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %.4f outside [0.0, 1.0]", e.Field, e.Value)
}

// NotFoundError is returned when an operation requires a record that is not
// present. Removal operations report absence as (false, nil) instead.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// PatternInUseError is returned by pattern removal while relationships still
// reference the pattern. Callers hot-swap or remove the relationships first.
type PatternInUseError struct {
	ID            string
	Relationships int
}

func (e PatternInUseError) Error() string {
	return fmt.Sprintf("pattern %q still referenced by %d relationship(s)", e.ID, e.Relationships)
}

// TypeMismatchError is returned by hot-swap when the two patterns belong to
// different dimensions.
type TypeMismatchError struct {
	OldID   string
	OldType PatternType
	NewID   string
	NewType PatternType
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot swap %s %q with %s %q: dimensions differ", e.OldType, e.OldID, e.NewType, e.NewID)
}

// InvalidPatternTypeError reports a pattern outside the closed variant set.
type InvalidPatternTypeError struct {
	Type PatternType
}

func (e InvalidPatternTypeError) Error() string {
	return fmt.Sprintf("invalid pattern type %q", string(e.Type))
}

// EmptyNameError reports a pattern with no name.
type EmptyNameError struct {
	ID string
}

func (e EmptyNameError) Error() string {
	if e.ID == "" {
		return "pattern name must not be empty"
	}
	return fmt.Sprintf("pattern %q name must not be empty", e.ID)
}
