package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// migration is one schema version. {{ts}} is replaced by the dialect's
// timestamp type.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS post (
				id              TEXT PRIMARY KEY,
				tenant_id       TEXT NOT NULL,
				organization_id TEXT NOT NULL,
				author_id       TEXT NOT NULL,
				title           TEXT NOT NULL DEFAULT '',
				content         TEXT NOT NULL,
				status          TEXT NOT NULL,
				platforms       TEXT NOT NULL DEFAULT '[]',
				media           TEXT NOT NULL DEFAULT '[]',
				scheduled_for   {{ts}},
				publish_id      TEXT NOT NULL DEFAULT '',
				review_round    INTEGER NOT NULL DEFAULT 0,
				submitted_at    {{ts}},
				published_at    {{ts}},
				created_at      {{ts}} NOT NULL,
				updated_at      {{ts}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS post_tenant ON post (tenant_id)`,
			`CREATE INDEX IF NOT EXISTS post_due ON post (status, scheduled_for)`,

			`CREATE TABLE IF NOT EXISTS approval_step (
				id            TEXT PRIMARY KEY,
				post_id       TEXT NOT NULL REFERENCES post (id),
				round         INTEGER NOT NULL,
				step_order    INTEGER NOT NULL,
				name          TEXT NOT NULL DEFAULT '',
				required_role TEXT NOT NULL,
				status        TEXT NOT NULL,
				created_at    {{ts}} NOT NULL,
				resolved_at   {{ts}},
				UNIQUE (post_id, round, step_order)
			)`,

			`CREATE TABLE IF NOT EXISTS approval_action (
				id         TEXT PRIMARY KEY,
				step_id    TEXT NOT NULL REFERENCES approval_step (id),
				actor_id   TEXT NOT NULL,
				action     TEXT NOT NULL,
				comment    TEXT NOT NULL DEFAULT '',
				created_at {{ts}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS approval_action_step ON approval_action (step_id)`,

			`CREATE TABLE IF NOT EXISTS task (
				id              TEXT PRIMARY KEY,
				post_id         TEXT REFERENCES post (id),
				step_id         TEXT REFERENCES approval_step (id),
				type            TEXT NOT NULL,
				status          TEXT NOT NULL,
				organization_id TEXT NOT NULL,
				tenant_id       TEXT NOT NULL,
				created_at      {{ts}} NOT NULL,
				resolved_at     {{ts}}
			)`,
			`CREATE INDEX IF NOT EXISTS task_org_status ON task (organization_id, status)`,
			`CREATE INDEX IF NOT EXISTS task_post ON task (post_id)`,
			`CREATE INDEX IF NOT EXISTS task_step ON task (step_id)`,

			`CREATE TABLE IF NOT EXISTS task_assignee (
				task_id  TEXT NOT NULL REFERENCES task (id),
				user_id  TEXT NOT NULL,
				position INTEGER NOT NULL,
				PRIMARY KEY (task_id, user_id)
			)`,
			`CREATE INDEX IF NOT EXISTS task_assignee_user ON task_assignee (user_id)`,

			`CREATE TABLE IF NOT EXISTS workflow_template (
				id         TEXT PRIMARY KEY,
				tenant_id  TEXT NOT NULL DEFAULT '',
				name       TEXT NOT NULL,
				active     BOOLEAN NOT NULL,
				created_at {{ts}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS workflow_template_tenant ON workflow_template (tenant_id, active)`,

			`CREATE TABLE IF NOT EXISTS workflow_template_step (
				template_id      TEXT NOT NULL REFERENCES workflow_template (id),
				step_order       INTEGER NOT NULL,
				name             TEXT NOT NULL DEFAULT '',
				required_role    TEXT NOT NULL,
				estimate_seconds INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (template_id, step_order)
			)`,

			`CREATE TABLE IF NOT EXISTS org_member (
				organization_id TEXT NOT NULL,
				user_id         TEXT NOT NULL,
				role            TEXT NOT NULL,
				position        INTEGER NOT NULL,
				PRIMARY KEY (organization_id, user_id, role)
			)`,
			`CREATE INDEX IF NOT EXISTS org_member_role ON org_member (organization_id, role, position)`,
		},
	},
}

// SchemaVersion is the version Migrate brings the database to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate creates or upgrades the schema. It is safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, s.dialect.txOptions())
	if err != nil {
		return mapError("begin migration", err)
	}
	c := conn{q: tx, d: s.dialect}

	if _, err := c.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		_ = tx.Rollback()
		return mapError("create schema_migrations", err)
	}

	var current int
	if err := c.queryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		_ = tx.Rollback()
		return mapError("read schema version", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.statements {
			stmt = strings.ReplaceAll(stmt, "{{ts}}", s.dialect.timestamp)
			if _, err := c.exec(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return mapError(fmt.Sprintf("apply migration %d", m.version), err)
			}
		}
		if _, err := c.exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return mapError("record schema version", err)
		}
		s.logger.Info("applied schema migration", "version", m.version)
	}

	return mapError("commit migration", tx.Commit())
}
