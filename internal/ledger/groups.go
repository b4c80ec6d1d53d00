package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/access"
	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// CreateGroupResult is returned by createGroup.
type CreateGroupResult struct {
	GroupID string `json:"groupId"`
}

// SuccessResult acknowledges an action with no payload.
type SuccessResult struct {
	Success bool `json:"success"`
}

// GroupResult carries a group record.
type GroupResult struct {
	Data *models.Group `json:"data"`
}

// newGroupID returns "group_" followed by nine random characters.
func newGroupID() string {
	return "group_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

func (d *Dispatcher) createGroup(ctx context.Context, callerID string, req *CreateGroupRequest) (*CreateGroupResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = access.DefaultGroupName
	}

	group := &models.Group{
		ID:      d.newID(),
		Name:    name,
		Members: []string{callerID},
		Creator: callerID,
	}
	if err := d.store.CreateGroup(ctx, group); err != nil {
		return nil, apperr.Storage(err, "failed to create group")
	}

	slog.Info("Group created", "group_id", group.ID, "creator", callerID)
	return &CreateGroupResult{GroupID: group.ID}, nil
}

// joinGroup adds the caller to an existing group. Joining twice is a no-op.
func (d *Dispatcher) joinGroup(ctx context.Context, callerID string, req *JoinGroupRequest) (*SuccessResult, error) {
	groupID := req.GroupID
	if err := access.CheckGroupID(groupID); err != nil {
		return nil, err
	}

	group, err := d.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("group not found")
		}
		return nil, apperr.Storage(err, "failed to read group")
	}
	if group.HasMember(callerID) {
		return &SuccessResult{Success: true}, nil
	}

	if err := d.store.AddGroupMember(ctx, groupID, callerID); err != nil {
		return nil, storeError(err, "group")
	}
	slog.Info("Member joined group", "group_id", groupID, "user_id", callerID)
	return &SuccessResult{Success: true}, nil
}

func (d *Dispatcher) getGroupInfo(tc *tenant) (*GroupResult, error) {
	return &GroupResult{Data: tc.grant.Group}, nil
}

func (d *Dispatcher) updateGroupInfo(ctx context.Context, tc *tenant, req *UpdateGroupInfoRequest) (*GroupResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.InvalidArgument("name is required")
	}

	if err := d.store.RenameGroup(ctx, tc.groupID, name); err != nil {
		return nil, storeError(err, "group")
	}
	group, err := d.store.GetGroup(ctx, tc.groupID)
	if err != nil {
		return nil, storeError(err, "group")
	}
	return &GroupResult{Data: group}, nil
}
