package models

import "fmt"

// Group represents a set of members who share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Goa Trip").
	Name string

	// Description is optional free text shown under the group name.
	Description string

	// CreatedBy is the member ID of the person who created the group.
	CreatedBy string

	// Members is the list of people in this group, in join order.
	Members []Member

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member is one person inside a group.
type Member struct {
	// ID is the opaque member identifier, unique within a group.
	// It is the subject of the member's auth token.
	ID string

	// GroupID is the group this member belongs to.
	GroupID string

	// DisplayName is the human-readable name of the member.
	DisplayName string

	// PaymentAddress is an optional payment handle (e.g. a UPI id).
	// It is passed through untouched to payment handoff collaborators.
	PaymentAddress string

	// JoinedAt is the Unix timestamp when the member was added.
	JoinedAt int64
}

// Validate checks the member fields required by every store.
func (m Member) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: member id required", ErrInvalidMember)
	}
	if m.DisplayName == "" {
		return fmt.Errorf("%w: display name required for member %s", ErrInvalidMember, m.ID)
	}
	return nil
}

// HasMember reports whether memberID belongs to the group.
func (g *Group) HasMember(memberID string) bool {
	_, ok := g.Member(memberID)
	return ok
}

// Member returns the member with the given ID.
func (g *Group) Member(memberID string) (Member, bool) {
	for _, m := range g.Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return Member{}, false
}

// MemberIDs returns the IDs of all members in join order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}
