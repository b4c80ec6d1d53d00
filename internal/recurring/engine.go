// Package recurring materializes the transactions owed by recurring rules.
//
// On every activation the engine selects the group's due rules (active, cursor
// before today) and, rule by rule, emits one transaction per occurrence after
// the cursor up to and including today. Each occurrence is recorded together
// with its cursor advance, so an interrupted run resumes exactly where it
// stopped. A rule that fails is logged and skipped; it never blocks the rest
// of the group.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// DefaultMaxOccurrences bounds one rule's catch-up in a single invocation:
// ten years of daily occurrences.
const DefaultMaxOccurrences = 3660

// Failure reasons reported in Result and metrics.
const (
	ReasonMalformed  = "malformed_rule"
	ReasonStorage    = "storage_failure"
	ReasonCapped     = "occurrence_cap"
	ReasonSuperseded = "cursor_moved"
)

var (
	errCapped     = errors.New("occurrence cap reached")
	errSuperseded = errors.New("cursor advanced by a concurrent catch-up")
)

// RuleStore is the subset of storage the engine needs.
type RuleStore interface {
	ListDueRules(ctx context.Context, groupID string, today calendar.Date) ([]*models.RecurringRule, error)
	RecordOccurrence(ctx context.Context, ruleID string, prev calendar.Date, txn *models.Transaction) error
}

// RuleFailure describes a rule that did not finish catching up.
type RuleFailure struct {
	RuleID string `json:"ruleId"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// Result summarizes one catch-up invocation.
type Result struct {
	Today     calendar.Date `json:"today"`
	Generated int           `json:"generatedCount"`
	Rules     int           `json:"dueRules"`
	Failures  []RuleFailure `json:"failures,omitempty"`
}

// Engine runs catch-up for a group.
type Engine struct {
	store          RuleStore
	now            func() time.Time
	maxOccurrences int
	metrics        *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used to compute today.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxOccurrences overrides the per-rule occurrence cap. Non-positive
// values keep the default.
func WithMaxOccurrences(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxOccurrences = n
		}
	}
}

// WithMetrics records generated counts and skipped rules.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an Engine over store.
func NewEngine(store RuleStore, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		now:            time.Now,
		maxOccurrences: DefaultMaxOccurrences,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CatchUp materializes every occurrence owed by the group's due rules.
// callerID is the attribution fallback for rules with no recorded owner.
//
// Only a failure to list the due rules fails the call; per-rule failures are
// reported in Result.Failures.
func (e *Engine) CatchUp(ctx context.Context, groupID, callerID string) (*Result, error) {
	now := e.now()
	today := calendar.Today(now)

	rules, err := e.store.ListDueRules(ctx, groupID, today)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list due recurring rules")
	}

	result := &Result{Today: today, Rules: len(rules)}
	for _, rule := range rules {
		n, err := e.catchUpRule(ctx, rule, today, callerID, now.Unix())
		result.Generated += n
		if err == nil {
			continue
		}

		reason := failureReason(err)
		slog.Warn("Recurring rule skipped",
			"group_id", groupID,
			"rule_id", rule.ID,
			"reason", reason,
			"generated", n,
			"cursor", rule.LastGeneratedDate.String(),
			"error", err,
		)
		e.metrics.RuleFailure(reason)
		result.Failures = append(result.Failures, RuleFailure{
			RuleID: rule.ID,
			Reason: reason,
			Error:  err.Error(),
		})
	}

	e.metrics.AddGenerated(result.Generated)
	slog.Info("Recurring catch-up finished",
		"group_id", groupID,
		"today", today.String(),
		"due_rules", len(rules),
		"generated", result.Generated,
		"failures", len(result.Failures),
	)
	return result, nil
}

// catchUpRule emits the rule's occurrences in chronological order and
// returns how many were recorded.
func (e *Engine) catchUpRule(ctx context.Context, rule *models.RecurringRule, today calendar.Date, callerID string, nowUnix int64) (int, error) {
	cadence, err := validate(rule)
	if err != nil {
		return 0, err
	}

	creator := rule.OwnerID
	if creator == "" {
		creator = callerID
	}

	cursor := rule.LastGeneratedDate
	next, err := calendar.Advance(cursor, cadence)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeMalformedRule, err, "cannot advance rule")
	}

	count := 0
	for !next.After(today) {
		if count >= e.maxOccurrences {
			return count, fmt.Errorf("%w after %d occurrences, cursor %s", errCapped, count, cursor)
		}

		txn := &models.Transaction{
			GroupID:      rule.GroupID,
			Kind:         rule.Kind,
			Amount:       rule.Amount.Decimal,
			Category:     rule.Category,
			CategoryIcon: rule.CategoryIcon,
			Date:         next,
			MemberLabel:  rule.MemberLabel,
			Note:         rule.Note,
			CreatedAt:    nowUnix,
			CreatorID:    creator,
		}
		if err := e.store.RecordOccurrence(ctx, rule.ID, cursor, txn); err != nil {
			if errors.Is(err, storage.ErrCursorMoved) {
				return count, fmt.Errorf("%w: %v", errSuperseded, err)
			}
			return count, apperr.Storage(err, fmt.Sprintf("failed to record occurrence %s", next))
		}
		count++
		rule.LastGeneratedDate = next

		cursor = next
		if next, err = calendar.Advance(cursor, cadence); err != nil {
			return count, apperr.Wrap(apperr.CodeMalformedRule, err, "cannot advance rule")
		}
	}
	return count, nil
}

// validate checks the fields an occurrence needs.
func validate(rule *models.RecurringRule) (calendar.Cadence, error) {
	cadence, err := calendar.ParseCadence(rule.Cadence)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeMalformedRule, err, "invalid cadence")
	}
	if !rule.Amount.Valid {
		return 0, apperr.New(apperr.CodeMalformedRule, "rule has no amount")
	}
	if !rule.Kind.Valid() {
		return 0, apperr.New(apperr.CodeMalformedRule, "invalid kind %q", rule.Kind)
	}
	if rule.LastGeneratedDate.IsZero() {
		return 0, apperr.New(apperr.CodeMalformedRule, "rule has no valid lastGeneratedDate")
	}
	return cadence, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errCapped):
		return ReasonCapped
	case errors.Is(err, errSuperseded):
		return ReasonSuperseded
	case apperr.Is(err, apperr.CodeMalformedRule):
		return ReasonMalformed
	default:
		return ReasonStorage
	}
}
