// Package validate compares values recorded by earlier steps with the values
// later responses report, and aggregates the outcome per step.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	dErrors "diagflow/pkg/domain-errors"
)

// Result is one comparison.
type Result struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
}

func (r Result) String() string {
	mark := "ok"
	if !r.Passed {
		mark = "FAIL"
	}
	return fmt.Sprintf("%s %s: expected %v, got %v", mark, r.Field, r.Expected, r.Actual)
}

// Check compares expected and actual. When at least one side is a numeric
// type and the other reads as a number they are compared numerically, so
// "450" matches 450.0. Two strings are always compared exactly: mobiles and
// ids that merely look numeric must match digit for digit.
func Check(field string, expected, actual any) Result {
	return Result{Field: field, Expected: expected, Actual: actual, Passed: equal(expected, actual)}
}

// That records a predicate outcome; want describes the expectation.
func That(field string, passed bool, want string, actual any) Result {
	return Result{Field: field, Expected: want, Actual: actual, Passed: passed}
}

func equal(expected, actual any) bool {
	if isNumeric(expected) || isNumeric(actual) {
		a, okA := number(expected)
		b, okB := number(actual)
		if okA && okB {
			return math.Abs(a-b) < 1e-9
		}
	}
	return reflect.DeepEqual(expected, actual)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, int32, float64, float32, json.Number:
		return true
	}
	return false
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Summary counts a batch's results.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Batch collects the checks for one step.
type Batch struct {
	Step    string
	Results []Result
}

func NewBatch(step string) *Batch {
	return &Batch{Step: step}
}

// Check appends a comparison and returns b for chaining.
func (b *Batch) Check(field string, expected, actual any) *Batch {
	b.Results = append(b.Results, Check(field, expected, actual))
	return b
}

// That appends a predicate outcome and returns b for chaining.
func (b *Batch) That(field string, passed bool, want string, actual any) *Batch {
	b.Results = append(b.Results, That(field, passed, want, actual))
	return b
}

func (b *Batch) Summary() Summary {
	s := Summary{Total: len(b.Results)}
	for _, r := range b.Results {
		if r.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	return s
}

// Failures returns the failed results in check order.
func (b *Batch) Failures() []Result {
	var out []Result
	for _, r := range b.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Err is nil when every check passed; otherwise a validation error naming
// each failed field.
func (b *Batch) Err() error {
	failed := b.Failures()
	if len(failed) == 0 {
		return nil
	}
	lines := make([]string, 0, len(failed))
	for _, r := range failed {
		lines = append(lines, r.String())
	}
	return dErrors.Newf(dErrors.CodeValidation, "%s: %d of %d checks failed: %s",
		b.Step, len(failed), len(b.Results), strings.Join(lines, "; "))
}
