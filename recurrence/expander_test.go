package recurrence_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/recurrence"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthlyRule(start time.Time) recurrence.Rule {
	return recurrence.Rule{
		ID:        uuid.New(),
		Name:      "Rent",
		Amount:    decimal.NewFromInt(1400),
		Frequency: recurrence.Monthly,
		StartDate: start,
		IsActive:  true,
	}
}

func assertOccurrences(t *testing.T, got []time.Time, want ...time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// =============================================================================
// DAY-OF-MONTH CLAMPING
// =============================================================================

func TestOccurrences_MonthlyJan31_ClampsToMonthEnd(t *testing.T) {
	// GIVEN: Monthly rule anchored Jan 31, 2025 (non-leap year)
	// WHEN: Expanding through April
	// THEN: Feb clamps to 28, then the day RESETS to 31 in March

	rule := monthlyRule(date(2025, time.January, 31))
	got := recurrence.Occurrences(rule, nil, date(2025, time.January, 1), date(2025, time.April, 30))

	assertOccurrences(t, got,
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
	)
}

func TestOccurrences_MonthlyJan31_LeapYearClampsTo29(t *testing.T) {
	// GIVEN: Monthly rule anchored Jan 31, 2024 (leap year)
	// WHEN: Expanding through March
	// THEN: February yields the 29th

	rule := monthlyRule(date(2024, time.January, 31))
	got := recurrence.Occurrences(rule, nil, date(2024, time.January, 1), date(2024, time.March, 31))

	assertOccurrences(t, got,
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
	)
}

func TestOccurrences_YearlyFeb29_ClampsOnNonLeapYears(t *testing.T) {
	// GIVEN: Yearly rule anchored Feb 29, 2024
	// WHEN: Expanding three years out
	// THEN: Non-leap years yield Feb 28

	rule := monthlyRule(date(2024, time.February, 29))
	rule.Frequency = recurrence.Yearly
	got := recurrence.Occurrences(rule, nil, date(2024, time.January, 1), date(2026, time.December, 31))

	assertOccurrences(t, got,
		date(2024, time.February, 29),
		date(2025, time.February, 28),
		date(2026, time.February, 28),
	)
}

// =============================================================================
// ANCHOR SEMANTICS
// =============================================================================

func TestOccurrences_StartDateIsFirstOccurrence(t *testing.T) {
	// GIVEN: Weekly rule starting today, never materialized
	// WHEN: Expanding over the next 14 days
	// THEN: The start date itself counts, then every 7 days

	start := date(2025, time.June, 2)
	rule := monthlyRule(start)
	rule.Frequency = recurrence.Weekly
	got := recurrence.Occurrences(rule, nil, start, start.AddDate(0, 0, 14))

	assertOccurrences(t, got, start, start.AddDate(0, 0, 7), start.AddDate(0, 0, 14))
}

func TestOccurrences_AnchoredOnRun_RequiresOneStep(t *testing.T) {
	// GIVEN: Weekly rule whose last successful run was June 2
	// WHEN: Expanding from June 2
	// THEN: June 2 is NOT due again; the next occurrence is June 9

	start := date(2025, time.May, 5)
	rule := monthlyRule(start)
	rule.Frequency = recurrence.Weekly
	lastRun := date(2025, time.June, 2)

	got := recurrence.Occurrences(rule, &lastRun, date(2025, time.June, 2), date(2025, time.June, 16))
	assertOccurrences(t, got, date(2025, time.June, 9), date(2025, time.June, 16))
}

func TestOccurrences_ClampedRunDoesNotStealTheTargetDay(t *testing.T) {
	// GIVEN: Monthly rule anchored Jan 31, 2025, whose February occurrence
	//        already ran on the clamped Feb 28
	// WHEN: Asking what comes next
	// THEN: March resets to the 31st; the clamped run day does not stick

	rule := monthlyRule(date(2025, time.January, 31))
	lastRun := date(2025, time.February, 28)

	next, ok := recurrence.NextDueOnOrAfter(rule, &lastRun, time.Time{})
	if !ok {
		t.Fatal("expected a next occurrence")
	}
	if want := date(2025, time.March, 31); !next.Equal(want) {
		t.Errorf("expected next due %v, got %v", want, next)
	}

	if recurrence.OccursOn(rule, &lastRun, date(2025, time.March, 28)) {
		t.Error("rule must not fire on March 28")
	}
	if !recurrence.OccursOn(rule, &lastRun, date(2025, time.March, 31)) {
		t.Error("rule must fire on March 31")
	}
}

func TestNextDueOnOrAfter_EndDateExhausted(t *testing.T) {
	// GIVEN: Monthly rule ending March 31
	// WHEN: Asking for the next occurrence after the end date
	// THEN: No occurrence

	rule := monthlyRule(date(2025, time.January, 15))
	end := date(2025, time.March, 31)
	rule.EndDate = &end

	_, ok := recurrence.NextDueOnOrAfter(rule, nil, date(2025, time.April, 1))
	if ok {
		t.Error("expected no occurrence past the end date")
	}
}

func TestNextDueOnOrAfter_SkipsToReference(t *testing.T) {
	// GIVEN: Monthly rule starting Jan 15
	// WHEN: Asking for the next occurrence on or after March 1
	// THEN: March 15

	rule := monthlyRule(date(2025, time.January, 15))
	due, ok := recurrence.NextDueOnOrAfter(rule, nil, date(2025, time.March, 1))
	if !ok {
		t.Fatal("expected an occurrence")
	}
	if !due.Equal(date(2025, time.March, 15)) {
		t.Errorf("expected March 15, got %v", due)
	}
}

// =============================================================================
// OCCURS-ON
// =============================================================================

func TestOccursOn_ExactDaysOnly(t *testing.T) {
	// GIVEN: Monthly rule starting Jan 15
	// WHEN: Probing nearby days
	// THEN: Only the 15th of each month matches

	rule := monthlyRule(date(2025, time.January, 15))

	if !recurrence.OccursOn(rule, nil, date(2025, time.February, 15)) {
		t.Error("expected Feb 15 to occur")
	}
	if recurrence.OccursOn(rule, nil, date(2025, time.February, 14)) {
		t.Error("did not expect Feb 14 to occur")
	}
	if recurrence.OccursOn(rule, nil, date(2025, time.January, 1)) {
		t.Error("did not expect a day before the start to occur")
	}
}

func TestOccursOn_InactiveRuleNeverOccurs(t *testing.T) {
	// GIVEN: An inactive rule
	// WHEN: Probing its own start date
	// THEN: No occurrence

	rule := monthlyRule(date(2025, time.January, 15))
	rule.IsActive = false
	if recurrence.OccursOn(rule, nil, date(2025, time.January, 15)) {
		t.Error("inactive rule should never occur")
	}
}

// =============================================================================
// FREQUENCY NORMALIZATION
// =============================================================================

func TestFrequency_UnknownDegradesToMonthly(t *testing.T) {
	// GIVEN: A garbled frequency value
	// WHEN: Normalizing
	// THEN: Monthly, not an error

	if got := recurrence.Frequency("fortnightly").Normalize(); got != recurrence.Monthly {
		t.Errorf("expected monthly, got %q", got)
	}
	if got := recurrence.Weekly.Normalize(); got != recurrence.Weekly {
		t.Errorf("expected weekly to survive, got %q", got)
	}
}

// =============================================================================
// RUN LOG
// =============================================================================

func TestLatestSuccessfulRun_IgnoresFailures(t *testing.T) {
	// GIVEN: A rule with a success on June 2 and a later failure on June 9
	// WHEN: Resolving the latest successful run
	// THEN: June 2 wins; the failure does not advance the anchor

	ruleID := uuid.New()
	runs := []recurrence.Run{
		{ID: uuid.New(), RuleID: ruleID, RunAt: date(2025, time.June, 2), Success: true},
		{ID: uuid.New(), RuleID: ruleID, RunAt: date(2025, time.June, 9), Success: false},
	}

	latest := recurrence.LatestSuccessfulRun(runs)
	if got := latest[ruleID]; !got.Equal(date(2025, time.June, 2)) {
		t.Errorf("expected June 2, got %v", got)
	}
}
