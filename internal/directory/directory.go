// Package directory resolves which organization members hold a role.
//
// Membership data is owned outside the workflow engine. The engine only
// reads it through [Directory] when choosing task assignees.
package directory

import (
	"context"
	"sync"

	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
)

// Member is an organization member eligible for tasks.
type Member struct {
	ID string `json:"id"`
}

// Directory looks up organization members by role.
type Directory interface {
	// MembersWithRole returns the members of orgID holding r in a stable
	// order. The order is the tie-break for workload balancing.
	MembersWithRole(ctx context.Context, orgID string, r role.Role) ([]Member, error)
}

// SQL reads memberships from the org_member table.
type SQL struct {
	members store.MemberRepository
}

// NewSQL creates a directory over a membership repository.
func NewSQL(members store.MemberRepository) *SQL {
	return &SQL{members: members}
}

// MembersWithRole implements Directory.
func (d *SQL) MembersWithRole(ctx context.Context, orgID string, r role.Role) ([]Member, error) {
	ids, err := d.members.ListByRole(ctx, orgID, r)
	if err != nil {
		return nil, err
	}
	members := make([]Member, len(ids))
	for i, id := range ids {
		members[i] = Member{ID: id}
	}
	return members, nil
}

// Static is an in-memory directory.
type Static struct {
	mu      sync.RWMutex
	members map[string]map[string][]string // org -> role -> user ids
}

// NewStatic creates an empty in-memory directory.
func NewStatic() *Static {
	return &Static{members: make(map[string]map[string][]string)}
}

// Add grants r to userID in orgID. Repeated grants are ignored.
func (d *Static) Add(orgID, userID string, r role.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byRole, ok := d.members[orgID]
	if !ok {
		byRole = make(map[string][]string)
		d.members[orgID] = byRole
	}
	for _, existing := range byRole[r.String()] {
		if existing == userID {
			return
		}
	}
	byRole[r.String()] = append(byRole[r.String()], userID)
}

// MembersWithRole implements Directory.
func (d *Static) MembersWithRole(_ context.Context, orgID string, r role.Role) ([]Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.members[orgID][r.String()]
	members := make([]Member, len(ids))
	for i, id := range ids {
		members[i] = Member{ID: id}
	}
	return members, nil
}
