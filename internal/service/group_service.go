package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/rpc"
	"github.com/mmynk/settleup/internal/storage"
)

var _ rpc.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a new group with the caller as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[rpc.CreateGroupRequest]) (*connect.Response[rpc.CreateGroupResponse], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	caller, err := callerID(ctx)
	if err != nil {
		return nil, fail("CreateGroup failed", err)
	}
	if req.Msg.Name == "" {
		return nil, fail("CreateGroup failed", invalidArgument("name required"))
	}

	creatorName := middleware.GetDisplayName(ctx)
	if creatorName == "" {
		creatorName = caller
	}
	group := &models.Group{
		Name:        req.Msg.Name,
		Description: req.Msg.Description,
		CreatedBy:   caller,
		Members:     []models.Member{{ID: caller, DisplayName: creatorName}},
	}
	for _, m := range req.Msg.Members {
		if m.ID == caller {
			continue
		}
		group.Members = append(group.Members, models.Member{
			ID:             m.ID,
			DisplayName:    m.DisplayName,
			PaymentAddress: m.PaymentAddress,
		})
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fail("CreateGroup failed", err)
	}

	slog.Info("Group created", "group_id", group.ID, "members_count", len(group.Members))

	return connect.NewResponse(&rpc.CreateGroupResponse{Group: toRPCGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[rpc.GetGroupRequest]) (*connect.Response[rpc.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("GetGroup failed", err, "group_id", req.Msg.GroupID)
	}

	return connect.NewResponse(&rpc.GetGroupResponse{Group: toRPCGroup(group)}), nil
}

// ListGroups lists the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[rpc.ListGroupsRequest]) (*connect.Response[rpc.ListGroupsResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, fail("ListGroups failed", err)
	}
	slog.Info("ListGroups request received", "member_id", caller)

	groups, err := s.store.ListGroupsByMember(ctx, caller)
	if err != nil {
		return nil, fail("ListGroups failed", err)
	}

	out := make([]rpc.Group, len(groups))
	for i, g := range groups {
		out[i] = toRPCGroup(g)
	}

	slog.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&rpc.ListGroupsResponse{Groups: out}), nil
}

// DeleteGroup removes a group and everything recorded in it. Only the creator may do this.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[rpc.DeleteGroupRequest]) (*connect.Response[rpc.DeleteGroupResponse], error) {
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	group, caller, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("DeleteGroup failed", err, "group_id", req.Msg.GroupID)
	}
	if group.CreatedBy != caller {
		return nil, fail("DeleteGroup failed", fmt.Errorf("group %s: %w", group.ID, errNotOwner))
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, fail("DeleteGroup failed", err, "group_id", group.ID)
	}

	slog.Info("Group deleted", "group_id", group.ID)

	return connect.NewResponse(&rpc.DeleteGroupResponse{}), nil
}

// AddMember adds a member to a group the caller belongs to.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[rpc.AddMemberRequest]) (*connect.Response[rpc.AddMemberResponse], error) {
	slog.Info("AddMember request received", "group_id", req.Msg.GroupID, "member_id", req.Msg.Member.ID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("AddMember failed", err, "group_id", req.Msg.GroupID)
	}

	member := &models.Member{
		ID:             req.Msg.Member.ID,
		GroupID:        group.ID,
		DisplayName:    req.Msg.Member.DisplayName,
		PaymentAddress: req.Msg.Member.PaymentAddress,
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		return nil, fail("AddMember failed", err, "group_id", group.ID)
	}

	slog.Info("Member added", "group_id", group.ID, "member_id", member.ID)

	return connect.NewResponse(&rpc.AddMemberResponse{Member: toRPCMember(*member)}), nil
}

// RemoveMember removes a member nothing in the group refers to.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[rpc.RemoveMemberRequest]) (*connect.Response[rpc.RemoveMemberResponse], error) {
	slog.Info("RemoveMember request received", "group_id", req.Msg.GroupID, "member_id", req.Msg.MemberID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("RemoveMember failed", err, "group_id", req.Msg.GroupID)
	}
	if req.Msg.MemberID == "" {
		return nil, fail("RemoveMember failed", invalidArgument("member_id required"), "group_id", group.ID)
	}

	if err := s.store.RemoveMember(ctx, group.ID, req.Msg.MemberID); err != nil {
		return nil, fail("RemoveMember failed", err, "group_id", group.ID, "member_id", req.Msg.MemberID)
	}

	slog.Info("Member removed", "group_id", group.ID, "member_id", req.Msg.MemberID)

	return connect.NewResponse(&rpc.RemoveMemberResponse{}), nil
}
