package executor

import (
	"fmt"
	"time"
)

// Result is the outcome of one unit in a pool run
type Result struct {
	Index int
	Kind  string

	// Value is the unit's return value; nil when it failed
	Value interface{}

	// Error is always a *UnitError when set
	Error error

	Duration time.Duration
}

// Failed reports whether the unit returned an error or panicked
func (r Result) Failed() bool {
	return r.Error != nil
}

// Summary aggregates a pool run
type Summary struct {
	Total       int
	Successful  int
	Failed      int
	AvgDuration time.Duration
	MaxDuration time.Duration
	MinDuration time.Duration
}

// Summarize walks results once and aggregates counts and durations
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	if s.Total == 0 {
		return s
	}

	var total time.Duration
	s.MinDuration = results[0].Duration
	for _, r := range results {
		if r.Failed() {
			s.Failed++
		} else {
			s.Successful++
		}
		total += r.Duration
		s.MaxDuration = max(s.MaxDuration, r.Duration)
		s.MinDuration = min(s.MinDuration, r.Duration)
	}
	s.AvgDuration = total / time.Duration(s.Total)
	return s
}

func (s Summary) String() string {
	out := fmt.Sprintf("Total: %d, Successful: %d, Failed: %d", s.Total, s.Successful, s.Failed)
	if s.Total == 0 {
		return out
	}
	return fmt.Sprintf("%s, Avg: %s, Max: %s, Min: %s", out,
		s.AvgDuration.Round(time.Millisecond),
		s.MaxDuration.Round(time.Millisecond),
		s.MinDuration.Round(time.Millisecond))
}

// CountSuccessful returns the number of units that returned a value
func CountSuccessful(results []Result) int { return Summarize(results).Successful }

// CountFailed returns the number of units that failed
func CountFailed(results []Result) int { return Summarize(results).Failed }

// AverageDuration, MaxDuration and MinDuration are zero for no results
func AverageDuration(results []Result) time.Duration { return Summarize(results).AvgDuration }

func MaxDuration(results []Result) time.Duration { return Summarize(results).MaxDuration }

func MinDuration(results []Result) time.Duration { return Summarize(results).MinDuration }

// FilterSuccessful keeps the results without an error, in index order
func FilterSuccessful(results []Result) []Result {
	return filter(results, false)
}

// FilterFailed keeps the results with an error, in index order
func FilterFailed(results []Result) []Result {
	return filter(results, true)
}

func filter(results []Result, failed bool) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Failed() == failed {
			out = append(out, r)
		}
	}
	return out
}

// Values returns every unit's value in index order; failed units give nil
func Values(results []Result) []interface{} {
	values := make([]interface{}, len(results))
	for i, r := range results {
		values[i] = r.Value
	}
	return values
}

// GetErrors returns the errors of failed units in index order
func GetErrors(results []Result) []error {
	errs := make([]error, 0)
	for _, r := range FilterFailed(results) {
		errs = append(errs, r.Error)
	}
	return errs
}

// HasErrors reports whether any unit failed
func HasErrors(results []Result) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// AllSuccessful reports whether no unit failed
func AllSuccessful(results []Result) bool {
	return !HasErrors(results)
}

// SuccessRate is the percentage of successful units, 0 for no results
func SuccessRate(results []Result) float64 {
	return rate(results, Summarize(results).Successful)
}

// FailureRate is the percentage of failed units, 0 for no results
func FailureRate(results []Result) float64 {
	return rate(results, Summarize(results).Failed)
}

func rate(results []Result, n int) float64 {
	if len(results) == 0 {
		return 0
	}
	return float64(n) / float64(len(results)) * 100
}
