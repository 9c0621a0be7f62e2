package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// callerID returns the authenticated member ID.
func callerID(ctx context.Context) (string, error) {
	id := middleware.GetMemberID(ctx)
	if id == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("no authenticated member"))
	}
	return id, nil
}

// groupForCaller loads groupID and checks the caller belongs to it.
func groupForCaller(ctx context.Context, groups storage.GroupStore, groupID string) (*models.Group, string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, "", err
	}
	if groupID == "" {
		return nil, "", invalidArgument("group_id required")
	}

	group, err := groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	if !group.HasMember(caller) {
		return nil, "", fmt.Errorf("group %s: %w", groupID, errNotMember)
	}
	return group, caller, nil
}
