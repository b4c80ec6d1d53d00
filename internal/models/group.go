package models

import "slices"

// Group is a shared ledger and its membership set.
type Group struct {
	// ID is either proposed by the first caller or server-generated.
	ID string `json:"id"`

	// Name is the display name of the ledger.
	Name string `json:"name"`

	// Members holds the user IDs allowed to read and write the ledger.
	// It is never empty once the group exists.
	Members []string `json:"members"`

	// Creator is the user ID that first created the group.
	Creator string `json:"creator"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"createTime"`

	// UpdatedAt is the Unix timestamp of the last rename, 0 if never renamed.
	UpdatedAt int64 `json:"updateTime,omitempty"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}
