// Package access implements the tenant access gate: the membership check
// every group-scoped action passes before it reads or writes ledger data.
package access

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// DefaultGroupName is given to groups created on first contact.
const DefaultGroupName = "Untitled ledger"

// Gate outcomes, as reported to metrics.
const (
	OutcomeGranted   = "granted"
	OutcomeCreated   = "created"
	OutcomeRechecked = "rechecked"
	OutcomeDenied    = "denied"
)

// GroupStore is the subset of storage the gate needs.
type GroupStore interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
}

// Grant is a successful membership resolution.
type Grant struct {
	Group *models.Group

	// Created is true when this call created the group.
	Created bool
}

// Gate resolves a caller's membership in a group, creating the group on
// first contact.
type Gate struct {
	store   GroupStore
	metrics *metrics.Metrics
}

// NewGate creates a Gate over store. m may be nil.
func NewGate(store GroupStore, m *metrics.Metrics) *Gate {
	return &Gate{store: store, metrics: m}
}

// Resolve grants callerID access to groupID or returns a coded error.
//
// A missing group is created with the caller as its only member. If that
// create fails (typically because a concurrent first contact won the race)
// the group is read again and the caller is granted only if the re-read shows
// them as a member. An existing group never gains members here; joining is
// a separate action.
func (g *Gate) Resolve(ctx context.Context, groupID, callerID string) (*Grant, error) {
	if err := CheckGroupID(groupID); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.InvalidArgument("caller identity is required")
	}

	group, err := g.store.GetGroup(ctx, groupID)
	switch {
	case err == nil:
		if !group.HasMember(callerID) {
			g.deny(groupID, callerID, "not a member")
			return nil, apperr.PermissionDenied("not a member of this group")
		}
		g.metrics.GateDecision(OutcomeGranted)
		return &Grant{Group: group}, nil

	case errors.Is(err, storage.ErrNotFound):
		return g.createOrRecheck(ctx, groupID, callerID)

	default:
		slog.Error("Access gate failed to read group", "group_id", groupID, "error", err)
		return nil, apperr.Storage(err, "failed to read group")
	}
}

// CheckGroupID rejects empty group IDs and IDs with surrounding whitespace,
// so that one group is never reachable under two spellings.
func CheckGroupID(groupID string) error {
	if groupID == "" {
		return apperr.InvalidArgument("groupId is required")
	}
	if strings.TrimSpace(groupID) != groupID {
		return apperr.InvalidArgument("groupId must not have leading or trailing whitespace")
	}
	return nil
}

func (g *Gate) createOrRecheck(ctx context.Context, groupID, callerID string) (*Grant, error) {
	group := &models.Group{
		ID:      groupID,
		Name:    DefaultGroupName,
		Members: []string{callerID},
		Creator: callerID,
	}
	createErr := g.store.CreateGroup(ctx, group)
	if createErr == nil {
		slog.Info("Group auto-created on first access", "group_id", groupID, "creator", callerID)
		g.metrics.GateDecision(OutcomeCreated)
		return &Grant{Group: group, Created: true}, nil
	}

	slog.Warn("Group auto-create failed, rechecking membership",
		"group_id", groupID,
		"caller_id", callerID,
		"error", createErr,
	)

	existing, err := g.store.GetGroup(ctx, groupID)
	if err == nil && existing.HasMember(callerID) {
		g.metrics.GateDecision(OutcomeRechecked)
		return &Grant{Group: existing}, nil
	}

	g.deny(groupID, callerID, "create and recheck failed")
	return nil, apperr.PermissionDenied("cannot create or access group")
}

func (g *Gate) deny(groupID, callerID, reason string) {
	slog.Warn("Access denied", "group_id", groupID, "caller_id", callerID, "reason", reason)
	g.metrics.GateDecision(OutcomeDenied)
}
