// Package foundation holds small building blocks shared by the domain packages.
package foundation

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

// FieldError is a single failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (fe FieldError) Error() string {
	if fe.Field == "" {
		return fe.Message
	}
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}

// Validation collects field errors so callers can report all problems at once.
type Validation struct {
	prefix string
	errs   []FieldError
}

// NewValidation creates a collector. prefix is prepended to every field name.
func NewValidation(prefix string) *Validation {
	return &Validation{prefix: prefix}
}

// Check records a failure when ok is false.
func (v *Validation) Check(ok bool, field string, value any, format string, args ...any) {
	if ok {
		return
	}
	v.errs = append(v.errs, FieldError{
		Field:   v.field(field),
		Message: fmt.Sprintf(format, args...),
		Value:   value,
	})
}

// Merge absorbs the failures of another collector.
func (v *Validation) Merge(other *Validation) {
	if other != nil {
		v.errs = append(v.errs, other.errs...)
	}
}

// Errors returns the recorded failures.
func (v *Validation) Errors() []FieldError { return v.errs }

// Valid reports whether no check failed.
func (v *Validation) Valid() bool { return len(v.errs) == 0 }

// Err returns nil when valid, otherwise a validation ClassifiedError listing every failure.
func (v *Validation) Err() error {
	if v.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(v.errs))
	for _, fe := range v.errs {
		msgs = append(msgs, fe.Error())
	}
	b := errors.ValidationError(strings.Join(msgs, "; ")).WithContext("fields", len(v.errs))
	if v.errs[0].Field != "" {
		b = b.WithContext("field", v.errs[0].Field)
	}
	return b.Build()
}

func (v *Validation) field(name string) string {
	switch {
	case v.prefix == "":
		return name
	case name == "":
		return v.prefix
	default:
		return v.prefix + "." + name
	}
}
