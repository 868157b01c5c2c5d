// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a stable learner identifier issued by the Identity service.
type UserID string

// IsValid checks if the user ID is non-empty and has no whitespace.
func (u UserID) IsValid() bool {
	s := string(u)
	return len(s) >= 1 && len(s) <= 100 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID")
	}
	return uid, nil
}

// CourseID represents a course identifier owned by the external Course Catalog.
type CourseID string

// IsValid checks if the course ID is non-empty and has no whitespace.
func (c CourseID) IsValid() bool {
	s := string(c)
	return len(s) >= 1 && len(s) <= 100 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.TrimSpace(id))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCourseID", ErrInvalidID, "invalid course ID")
	}
	return cid, nil
}

// ModuleID represents a module identifier inside a course.
type ModuleID string

// String returns the string representation.
func (m ModuleID) String() string {
	return string(m)
}

// IsEmpty checks if the ID is empty.
func (m ModuleID) IsEmpty() bool {
	return m == ""
}

// ContentID represents a single content item inside a module.
type ContentID string

// String returns the string representation.
func (c ContentID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c ContentID) IsEmpty() bool {
	return c == ""
}

// AssessmentID represents an assessment definition owned by the Course Catalog.
type AssessmentID string

// String returns the string representation.
func (a AssessmentID) String() string {
	return string(a)
}

// IsEmpty checks if the ID is empty.
func (a AssessmentID) IsEmpty() bool {
	return a == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Key
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentKey identifies the (user, course) aggregate. All mutations to a
// single key are serialized; different keys proceed fully in parallel.
type EnrollmentKey struct {
	UserID   UserID
	CourseID CourseID
}

// IsValid checks both components of the key.
func (k EnrollmentKey) IsValid() bool {
	return k.UserID.IsValid() && k.CourseID.IsValid()
}

// String returns a stable string form usable as a lock or cache key.
func (k EnrollmentKey) String() string {
	return fmt.Sprintf("%s:%s", k.UserID, k.CourseID)
}

// NewEnrollmentKey creates a validated enrollment key.
func NewEnrollmentKey(userID UserID, courseID CourseID) (EnrollmentKey, error) {
	k := EnrollmentKey{UserID: userID, CourseID: courseID}
	if !k.IsValid() {
		return EnrollmentKey{}, NewDomainError("shared", "NewEnrollmentKey", ErrInvalidID, "invalid enrollment key")
	}
	return k, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Percent Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percent represents a progress or score percentage in the range 0-100.
type Percent int

const (
	// MinPercent is the lower bound of a valid percentage.
	MinPercent Percent = 0

	// MaxPercent is the upper bound of a valid percentage.
	MaxPercent Percent = 100
)

// IsValid checks if the percentage is within 0-100.
func (p Percent) IsValid() bool {
	return p >= MinPercent && p <= MaxPercent
}

// Int returns the underlying int value.
func (p Percent) Int() int {
	return int(p)
}

// IsComplete reports whether the percentage represents full completion.
func (p Percent) IsComplete() bool {
	return p >= MaxPercent
}

// NewPercent creates a new Percent with range validation.
func NewPercent(v int) (Percent, error) {
	p := Percent(v)
	if !p.IsValid() {
		return 0, NewDomainError("shared", "NewPercent", ErrValueOutOfRange, "percentage must be between 0 and 100")
	}
	return p, nil
}
