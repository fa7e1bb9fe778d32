/*
expander.go - Occurrence expansion with day-of-month clamping

PURPOSE:
  Turns a rule into its sequence of due dates. The state machine is
  {anchor} -> addFrequency(anchor) -> {nextAnchor}, repeated; the anchor
  is the last successful run when one exists, else the rule's start date.

CLAMP-THEN-RESET:
  Month and year steps are computed from the anchor's day-of-month and
  clamped to the target month's actual length. A monthly rule anchored
  Jan 31 is due Feb 28 (Feb 29 in leap years) and then Mar 31 again - the
  clamp never rolls into the next month and never sticks: each step is
  derived from the anchor, not from the previous clamped result.

ANCHOR SEMANTICS:
  - Anchored on start_date: the start date itself is the first occurrence
    (zero steps allowed).
  - Anchored on a successful run: that occurrence has already been
    materialized, so at least one step is required.

SEE ALSO:
  - forecast/simulator.go: Calls OccursOn for each day in its horizon
  - api/materializer.go: Calls NextDueOnOrAfter to find due rules
*/
package recurrence

import (
	"time"

	"github.com/warp/budget-engine/ledger"
)

// =============================================================================
// ANCHOR
// =============================================================================

// anchorFor returns the expansion anchor and the minimum number of
// frequency steps before the first countable occurrence.
func anchorFor(rule Rule, lastSuccessfulRun *time.Time) (anchor time.Time, minSteps int) {
	if lastSuccessfulRun != nil {
		return ledger.Day(*lastSuccessfulRun), 1
	}
	return ledger.Day(rule.StartDate), 0
}

// occurrenceAt returns the nth occurrence (n >= 0) reachable from anchor.
// Monthly and yearly steps aim for the rule's start day-of-month, clamped
// per target month: a Jan-31 rule whose February run landed on the clamped
// Feb 28 still fires on Mar 31, not the 28th.
func occurrenceAt(rule Rule, anchor time.Time, n int) time.Time {
	switch rule.Frequency.Normalize() {
	case Weekly:
		return anchor.AddDate(0, 0, 7*n)
	case Yearly:
		return clampedDate(anchor.Year()+n, anchor.Month(), targetDay(rule, anchor))
	default: // Monthly
		months := int(anchor.Month()) - 1 + n
		year := anchor.Year() + months/12
		month := time.Month(months%12 + 1)
		return clampedDate(year, month, targetDay(rule, anchor))
	}
}

// targetDay is the day-of-month occurrences aim for. The rule's start date
// carries it; the run anchor only counts steps.
func targetDay(rule Rule, anchor time.Time) int {
	if rule.StartDate.IsZero() {
		return anchor.Day()
	}
	return rule.StartDate.Day()
}

// clampedDate builds a date clamping day to the month's actual length
// (Jan 31 + 1 month = Feb 28/29, never Mar 3).
func clampedDate(year int, month time.Month, day int) time.Time {
	if max := ledger.DaysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// EXPANSION
// =============================================================================

// NextDueOnOrAfter returns the first occurrence of the rule that is not
// before reference. Returns false when the rule has no such occurrence
// because its end date is exhausted.
func NextDueOnOrAfter(rule Rule, lastSuccessfulRun *time.Time, reference time.Time) (time.Time, bool) {
	anchor, minSteps := anchorFor(rule, lastSuccessfulRun)
	ref := ledger.Day(reference)

	for n := minSteps; ; n++ {
		due := occurrenceAt(rule, anchor, n)
		if due.Before(ref) {
			continue
		}
		if rule.EndDate != nil && due.After(ledger.Day(*rule.EndDate)) {
			return time.Time{}, false
		}
		return due, true
	}
}

// OccursOn reports whether candidateDate is reachable from the anchor by a
// whole number of frequency steps, is not before the rule's start, and is
// not after its end date. Inactive rules never occur.
func OccursOn(rule Rule, lastSuccessfulRun *time.Time, candidateDate time.Time) bool {
	if !rule.IsActive {
		return false
	}
	candidate := ledger.Day(candidateDate)
	if candidate.Before(ledger.Day(rule.StartDate)) {
		return false
	}
	if rule.EndDate != nil && candidate.After(ledger.Day(*rule.EndDate)) {
		return false
	}

	anchor, minSteps := anchorFor(rule, lastSuccessfulRun)
	if candidate.Before(anchor) {
		return false
	}

	switch rule.Frequency.Normalize() {
	case Weekly:
		days := daysBetween(anchor, candidate)
		return days%7 == 0 && days/7 >= minSteps

	case Yearly:
		years := candidate.Year() - anchor.Year()
		if years < minSteps {
			return false
		}
		return candidate.Equal(occurrenceAt(rule, anchor, years))

	default: // Monthly
		months := (candidate.Year()-anchor.Year())*12 + int(candidate.Month()) - int(anchor.Month())
		if months < minSteps {
			return false
		}
		return candidate.Equal(occurrenceAt(rule, anchor, months))
	}
}

// Occurrences returns every occurrence of the rule within [from, to].
func Occurrences(rule Rule, lastSuccessfulRun *time.Time, from, to time.Time) []time.Time {
	if !rule.IsActive {
		return nil
	}
	anchor, minSteps := anchorFor(rule, lastSuccessfulRun)
	start, end := ledger.Day(from), ledger.Day(to)
	if rule.EndDate != nil && ledger.Day(*rule.EndDate).Before(end) {
		end = ledger.Day(*rule.EndDate)
	}

	var out []time.Time
	for n := minSteps; ; n++ {
		due := occurrenceAt(rule, anchor, n)
		if due.After(end) {
			return out
		}
		if !due.Before(start) {
			out = append(out, due)
		}
	}
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
