package cronexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidFrequency is wrapped by every parse failure.
var ErrInvalidFrequency = errors.New("invalid frequency expression")

type fieldSpec struct {
	name string
	min  int
	max  int
}

var fieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day of month", 1, 31},
	{"month", 1, 12},
	{"day of week", 0, 6},
}

// Expression is a validated 5-field cron frequency. Each field is `*`,
// a literal integer within its domain, or a `*/N` step. Fields are
// independent; there is no cross-field calendar validation (day 31 in
// February is accepted, as in standard cron).
type Expression struct {
	fields [5]string
}

// Parse validates raw as a restricted 5-field cron expression.
func Parse(raw string) (*Expression, error) {
	parts := strings.Fields(raw)
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidFrequency, len(parts))
	}

	var expr Expression
	for i, part := range parts {
		if err := validateField(part, fieldSpecs[i]); err != nil {
			return nil, err
		}
		expr.fields[i] = part
	}
	return &expr, nil
}

func validateField(field string, spec fieldSpec) error {
	if field == "*" {
		return nil
	}

	if step, ok := strings.CutPrefix(field, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: bad step %q in %s field", ErrInvalidFrequency, field, spec.name)
		}
		return nil
	}

	n, err := strconv.Atoi(field)
	if err != nil {
		return fmt.Errorf("%w: bad value %q in %s field", ErrInvalidFrequency, field, spec.name)
	}
	if n < spec.min || n > spec.max {
		return fmt.Errorf("%w: %s %d out of range %d-%d", ErrInvalidFrequency, spec.name, n, spec.min, spec.max)
	}
	return nil
}

// String returns the canonical form: the 5 fields rejoined with single
// spaces. Equivalent expressions are not normalized.
func (e *Expression) String() string {
	return strings.Join(e.fields[:], " ")
}

// Describe renders the expression as a human sentence. The minute field
// leads ("every minute" / "every N minutes" / "at minute M"), then one
// clause per non-wildcard remaining field.
func (e *Expression) Describe() string {
	var b strings.Builder

	minute := e.fields[0]
	switch {
	case minute == "*":
		b.WriteString("every minute")
	case strings.HasPrefix(minute, "*/"):
		b.WriteString("every " + pluralize(strings.TrimPrefix(minute, "*/"), "minute"))
	default:
		b.WriteString("at minute " + minute)
	}

	clauses := [4]string{", at hour %s", ", on day %s", ", in month %s", ", on weekday %s"}
	for i, clause := range clauses {
		if f := e.fields[i+1]; f != "*" {
			fmt.Fprintf(&b, clause, f)
		}
	}
	return b.String()
}

func pluralize(n, unit string) string {
	if n == "1" {
		return n + " " + unit
	}
	return n + " " + unit + "s"
}

// Next returns the first fire time strictly after from. The restricted
// grammar is a subset of standard cron, so the expression always parses.
func (e *Expression) Next(from time.Time) time.Time {
	sched, err := cron.ParseStandard(e.String())
	if err != nil {
		return time.Time{}
	}
	return sched.Next(from)
}
