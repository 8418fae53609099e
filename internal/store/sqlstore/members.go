package sqlstore

import (
	"context"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
)

type memberRepo struct {
	c conn
}

func (r *memberRepo) Add(ctx context.Context, m store.Membership) error {
	if m.OrganizationID == "" || m.UserID == "" || m.Role.IsZero() {
		return errors.NewValidationError("membership needs organization, user and role")
	}
	_, err := r.c.exec(ctx, `INSERT INTO org_member (organization_id, user_id, role, position)
		SELECT ?, ?, ?, COALESCE(MAX(position), 0) + 1 FROM org_member WHERE organization_id = ?
		ON CONFLICT (organization_id, user_id, role) DO NOTHING`,
		m.OrganizationID, m.UserID, m.Role.String(), m.OrganizationID)
	return mapError("insert membership", err)
}

func (r *memberRepo) ListByRole(ctx context.Context, orgID string, rr role.Role) ([]string, error) {
	rows, err := r.c.query(ctx, `SELECT user_id FROM org_member
		WHERE organization_id = ? AND role = ?
		ORDER BY position`, orgID, rr.String())
	if err != nil {
		return nil, mapError("select members", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("scan member", err)
		}
		ids = append(ids, id)
	}
	return ids, mapError("iterate members", rows.Err())
}

func (r *memberRepo) List(ctx context.Context, orgID string) ([]store.Membership, error) {
	rows, err := r.c.query(ctx, `SELECT organization_id, user_id, role FROM org_member
		WHERE organization_id = ?
		ORDER BY position`, orgID)
	if err != nil {
		return nil, mapError("select members", err)
	}
	defer rows.Close()

	var members []store.Membership
	for rows.Next() {
		var (
			m        store.Membership
			roleName string
		)
		if err := rows.Scan(&m.OrganizationID, &m.UserID, &roleName); err != nil {
			return nil, mapError("scan member", err)
		}
		rr, err := role.Parse(roleName)
		if err != nil {
			return nil, errors.Wrapf(err, "member %s", m.UserID)
		}
		m.Role = rr
		members = append(members, m)
	}
	return members, mapError("iterate members", rows.Err())
}
