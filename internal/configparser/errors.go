// Package configparser translates the raw configuration tree
// (internal/rawconfig) into the immutable domain model
// (internal/domain), performing all validation, shorthand expansion and
// value-match compilation described in spec §4.3. Parsing is total: it
// either returns a fully validated configuration or the complete list of
// errors it found; it never returns a partially built one.
package configparser

import (
	"fmt"
	"strings"
)

// FieldError is a single parse error localized to a node in the raw tree,
// matching the teacher's own fmt.Errorf("...: %w", err) wrapping idiom
// (configuration.Load) generalized to a collected list instead of a single
// returned error.
type FieldError struct {
	Location string
	Message  string
}

func (e *FieldError) Error() string {
	if e.Location == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// Errors is the complete set of parse errors found in one pass.
type Errors []*FieldError

func (es Errors) Error() string {
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

// HasAny reports whether any errors were collected.
func (es Errors) HasAny() bool { return len(es) > 0 }

// locator is the minimal thing collector.add and collector.addErr need:
// anything with Location().
type locator interface {
	Location() string
}

type collector struct {
	errs Errors
}

func (c *collector) add(loc locator, format string, args ...interface{}) {
	location := ""
	if loc != nil {
		location = loc.Location()
	}
	c.errs = append(c.errs, &FieldError{Location: location, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) addErr(loc locator, err error) {
	if err == nil {
		return
	}
	location := ""
	if loc != nil {
		location = loc.Location()
	}
	c.errs = append(c.errs, &FieldError{Location: location, Message: err.Error()})
}
