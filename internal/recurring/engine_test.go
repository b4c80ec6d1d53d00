package recurring

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/internal/storage/sqlite"
)

const groupID = "g1"

// clockAt returns a clock fixed at noon of the given local day.
func clockAt(day string) func() time.Time {
	d := calendar.MustParse(day)
	return func() time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, calendar.Zone)
	}
}

func newStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "recurring.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateGroup(context.Background(), &models.Group{
		ID: groupID, Name: "Household", Creator: "alice", Members: []string{"alice", "bob"},
	}))
	return store
}

func addRule(t *testing.T, store *sqlite.SQLiteStore, cadence, last, owner string) *models.RecurringRule {
	t.Helper()
	rule := &models.RecurringRule{
		GroupID:           groupID,
		Kind:              models.KindExpense,
		Amount:            decimal.NewNullDecimal(decimal.RequireFromString("1200")),
		Category:          "Rent",
		CategoryIcon:      "house",
		MemberLabel:       "Me",
		Note:              "rent (recurring)",
		Cadence:           cadence,
		LastGeneratedDate: calendar.MustParse(last),
		IsActive:          true,
		OwnerID:           owner,
	}
	require.NoError(t, store.CreateRule(context.Background(), rule))
	return rule
}

func ruleTransactions(t *testing.T, store *sqlite.SQLiteStore, ruleID string) []string {
	t.Helper()
	txns, err := store.ListTransactions(context.Background(), groupID, storage.TransactionFilter{})
	require.NoError(t, err)

	var dates []string
	for i := len(txns) - 1; i >= 0; i-- { // oldest first
		if txns[i].RuleID == ruleID {
			dates = append(dates, txns[i].Date.String())
		}
	}
	return dates
}

func cursorOf(t *testing.T, store *sqlite.SQLiteStore, ruleID string) string {
	t.Helper()
	rules, err := store.ListRules(context.Background(), groupID)
	require.NoError(t, err)
	for _, r := range rules {
		if r.ID == ruleID {
			return r.LastGeneratedDate.String()
		}
	}
	t.Fatalf("rule %s not found", ruleID)
	return ""
}

func TestCatchUp_WeeklyScenario(t *testing.T) {
	store := newStore(t)
	rule := addRule(t, store, "weekly", "2024-01-01", "alice")

	result, err := NewEngine(store, WithClock(clockAt("2024-01-22"))).CatchUp(context.Background(), groupID, "bob")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Generated)
	assert.Equal(t, "2024-01-22", result.Today.String())
	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"2024-01-08", "2024-01-15", "2024-01-22"}, ruleTransactions(t, store, rule.ID))
	assert.Equal(t, "2024-01-22", cursorOf(t, store, rule.ID))
}

func TestCatchUp_NothingDue(t *testing.T) {
	store := newStore(t)
	rule := addRule(t, store, "weekly", "2024-01-22", "alice")

	result, err := NewEngine(store, WithClock(clockAt("2024-01-22"))).CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Generated)
	assert.Equal(t, 0, result.Rules)
	assert.Empty(t, ruleTransactions(t, store, rule.ID))
	assert.Equal(t, "2024-01-22", cursorOf(t, store, rule.ID))
}

func TestCatchUp_MonthlyClampsToMonthEnd(t *testing.T) {
	store := newStore(t)
	rule := addRule(t, store, "monthly", "2024-01-31", "alice")

	result, err := NewEngine(store, WithClock(clockAt("2024-03-01"))).CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, []string{"2024-02-29"}, ruleTransactions(t, store, rule.ID))
	assert.Equal(t, "2024-02-29", cursorOf(t, store, rule.ID))

	// The clamped day carries forward.
	_, err = NewEngine(store, WithClock(clockAt("2024-04-30"))).CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-29", "2024-03-29", "2024-04-29"}, ruleTransactions(t, store, rule.ID))
}

func TestCatchUp_IdempotentForSameDay(t *testing.T) {
	store := newStore(t)
	rule := addRule(t, store, "daily", "2024-01-01", "alice")
	engine := NewEngine(store, WithClock(clockAt("2024-01-10")))

	first, err := engine.CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 9, first.Generated)

	second, err := engine.CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Len(t, ruleTransactions(t, store, rule.ID), 9)
	assert.Equal(t, "2024-01-10", cursorOf(t, store, rule.ID))
}

func TestCatchUp_CompletenessAndMonotonicity(t *testing.T) {
	tests := []struct {
		cadence string
		last    string
		days    []string // successive "today" values
	}{
		{"daily", "2024-02-25", []string{"2024-02-27", "2024-02-27", "2024-03-02"}},
		{"weekly", "2023-12-30", []string{"2024-01-05", "2024-01-06", "2024-02-01"}},
		{"monthly", "2023-10-31", []string{"2023-11-29", "2023-11-30", "2024-03-31"}},
	}

	for _, tt := range tests {
		t.Run(tt.cadence, func(t *testing.T) {
			store := newStore(t)
			rule := addRule(t, store, tt.cadence, tt.last, "alice")
			cadence, err := calendar.ParseCadence(tt.cadence)
			require.NoError(t, err)

			prevCursor := tt.last
			for _, day := range tt.days {
				_, err := NewEngine(store, WithClock(clockAt(day))).CatchUp(context.Background(), groupID, "alice")
				require.NoError(t, err)

				// Expected occurrences in (last, day].
				var want []string
				next, _ := calendar.Advance(calendar.MustParse(tt.last), cadence)
				for !next.After(calendar.MustParse(day)) {
					want = append(want, next.String())
					next, _ = calendar.Advance(next, cadence)
				}
				assert.Equal(t, want, ruleTransactions(t, store, rule.ID), "today=%s", day)

				cursor := cursorOf(t, store, rule.ID)
				assert.GreaterOrEqual(t, cursor, prevCursor, "cursor must not decrease")
				assert.LessOrEqual(t, cursor, day, "cursor must not pass today")
				if len(want) > 0 {
					assert.Equal(t, want[len(want)-1], cursor)
				}
				prevCursor = cursor
			}
		})
	}
}

func TestCatchUp_Attribution(t *testing.T) {
	store := newStore(t)
	owned := addRule(t, store, "daily", "2024-01-01", "alice")
	orphan := addRule(t, store, "daily", "2024-01-01", "")

	_, err := NewEngine(store, WithClock(clockAt("2024-01-02"))).CatchUp(context.Background(), groupID, "bob")
	require.NoError(t, err)

	txns, err := store.ListTransactions(context.Background(), groupID, storage.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		switch txn.RuleID {
		case owned.ID:
			assert.Equal(t, "alice", txn.CreatorID)
		case orphan.ID:
			assert.Equal(t, "bob", txn.CreatorID)
		}
		assert.Equal(t, "Rent", txn.Category)
		assert.Equal(t, "house", txn.CategoryIcon)
		assert.Equal(t, "Me", txn.MemberLabel)
		assert.True(t, txn.Amount.Equal(decimal.NewFromInt(1200)))
		assert.NotZero(t, txn.CreatedAt)
	}
}

func TestCatchUp_MalformedRuleDoesNotBlockOthers(t *testing.T) {
	store := newStore(t)
	bad := addRule(t, store, "fortnightly", "2024-01-01", "alice")
	good := addRule(t, store, "weekly", "2024-01-01", "alice")
	m := metrics.New()

	result, err := NewEngine(store, WithClock(clockAt("2024-01-22")), WithMetrics(m)).CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Generated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, bad.ID, result.Failures[0].RuleID)
	assert.Equal(t, ReasonMalformed, result.Failures[0].Reason)
	assert.Equal(t, "2024-01-01", cursorOf(t, store, bad.ID))
	assert.Equal(t, "2024-01-22", cursorOf(t, store, good.ID))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleFailures.WithLabelValues(ReasonMalformed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Generated))
}

func TestCatchUp_MissingAmountIsMalformed(t *testing.T) {
	store := newStore(t)
	rule := &models.RecurringRule{
		GroupID: groupID, Kind: models.KindIncome, Cadence: "daily",
		LastGeneratedDate: calendar.MustParse("2024-01-01"), IsActive: true, OwnerID: "alice",
	}
	require.NoError(t, store.CreateRule(context.Background(), rule))

	result, err := NewEngine(store, WithClock(clockAt("2024-01-03"))).CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Generated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, ReasonMalformed, result.Failures[0].Reason)
}

func TestCatchUp_OccurrenceCap(t *testing.T) {
	store := newStore(t)
	rule := addRule(t, store, "daily", "2020-01-01", "alice")
	engine := NewEngine(store, WithClock(clockAt("2024-01-01")), WithMaxOccurrences(100))

	result, err := engine.CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, result.Generated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, ReasonCapped, result.Failures[0].Reason)
	assert.Equal(t, "2020-04-10", cursorOf(t, store, rule.ID))

	// The next activation resumes from the persisted cursor.
	result, err = engine.CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, result.Generated)
	assert.Equal(t, "2020-07-19", cursorOf(t, store, rule.ID))
}

// flakyStore fails RecordOccurrence for one rule after a number of successes.
type flakyStore struct {
	rules    []*models.RecurringRule
	failRule string
	failWith error
	after    int
	recorded map[string][]string
	listErr  error
}

func (s *flakyStore) ListDueRules(context.Context, string, calendar.Date) ([]*models.RecurringRule, error) {
	return s.rules, s.listErr
}

func (s *flakyStore) RecordOccurrence(_ context.Context, ruleID string, prev calendar.Date, txn *models.Transaction) error {
	if ruleID == s.failRule && len(s.recorded[ruleID]) >= s.after {
		return s.failWith
	}
	if s.recorded == nil {
		s.recorded = map[string][]string{}
	}
	s.recorded[ruleID] = append(s.recorded[ruleID], prev.String()+">"+txn.Date.String())
	return nil
}

func fakeRule(id, last string) *models.RecurringRule {
	return &models.RecurringRule{
		ID: id, GroupID: groupID, Kind: models.KindExpense,
		Amount:  decimal.NewNullDecimal(decimal.NewFromInt(5)),
		Cadence: "daily", LastGeneratedDate: calendar.MustParse(last), IsActive: true, OwnerID: "alice",
	}
}

func TestCatchUp_StorageFailureSkipsRule(t *testing.T) {
	store := &flakyStore{
		rules:    []*models.RecurringRule{fakeRule("r1", "2024-01-01"), fakeRule("r2", "2024-01-01")},
		failRule: "r1",
		failWith: errors.New("disk I/O error"),
		after:    1,
	}

	result, err := NewEngine(store, WithClock(clockAt("2024-01-04"))).CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)

	assert.Equal(t, 1+3, result.Generated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, ReasonStorage, result.Failures[0].Reason)
	// Occurrences are recorded in order, each from the previous cursor.
	assert.Equal(t, []string{"2024-01-01>2024-01-02"}, store.recorded["r1"])
	assert.Equal(t, []string{"2024-01-01>2024-01-02", "2024-01-02>2024-01-03", "2024-01-03>2024-01-04"}, store.recorded["r2"])
}

func TestCatchUp_CursorMovedStopsRule(t *testing.T) {
	store := &flakyStore{
		rules:    []*models.RecurringRule{fakeRule("r1", "2024-01-01")},
		failRule: "r1",
		failWith: fmt.Errorf("rule r1: %w", storage.ErrCursorMoved),
		after:    0,
	}

	result, err := NewEngine(store, WithClock(clockAt("2024-01-04"))).CatchUp(context.Background(), groupID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Generated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, ReasonSuperseded, result.Failures[0].Reason)
}

func TestCatchUp_ListFailureIsStorageError(t *testing.T) {
	store := &flakyStore{listErr: errors.New("database is locked")}

	_, err := NewEngine(store).CatchUp(context.Background(), groupID, "alice")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeStorage))
}

// Two concurrent catch-ups over one store never double-emit an occurrence.
func TestCatchUp_ConcurrentInvocationsDoNotDuplicate(t *testing.T) {
	store := newStore(t)
	rule := addRule(t, store, "daily", "2024-01-01", "alice")
	engine := NewEngine(store, WithClock(clockAt("2024-01-31")))

	done := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			result, err := engine.CatchUp(context.Background(), groupID, "alice")
			if err != nil {
				done <- -1
				return
			}
			done <- result.Generated
		}()
	}
	total := <-done + <-done

	assert.Equal(t, 30, total)
	dates := ruleTransactions(t, store, rule.ID)
	assert.Len(t, dates, 30)
	seen := map[string]bool{}
	for _, d := range dates {
		assert.False(t, seen[d], "duplicate occurrence %s", d)
		seen[d] = true
	}
}
