package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
)

const postColumns = `id, tenant_id, organization_id, author_id, title, content, status,
	platforms, media, scheduled_for, publish_id, review_round,
	submitted_at, published_at, created_at, updated_at`

type postRepo struct {
	c conn
}

func (r *postRepo) Create(ctx context.Context, p *model.Post) error {
	platforms, media, err := encodePostLists(p)
	if err != nil {
		return err
	}
	_, err = r.c.exec(ctx, `INSERT INTO post (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.OrganizationID, p.AuthorID, p.Title, p.Content, string(p.Status),
		platforms, media, nullTime(p.ScheduledFor), p.PublishID, p.Round,
		nullTime(p.SubmittedAt), nullTime(p.PublishedAt), dbTime(p.CreatedAt), dbTime(p.UpdatedAt))
	return mapError("insert post", err)
}

func (r *postRepo) Get(ctx context.Context, tenantID, id string) (*model.Post, error) {
	row := r.c.queryRow(ctx, `SELECT `+postColumns+` FROM post WHERE id = ? AND tenant_id = ?`, id, tenantID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("post", id)
	}
	if err != nil {
		return nil, mapError("select post", err)
	}
	return p, nil
}

func (r *postRepo) Save(ctx context.Context, p *model.Post, expected model.PostStatus) error {
	platforms, media, err := encodePostLists(p)
	if err != nil {
		return err
	}
	res, err := r.c.exec(ctx, `UPDATE post SET
			title = ?, content = ?, status = ?, platforms = ?, media = ?, scheduled_for = ?,
			publish_id = ?, review_round = ?, submitted_at = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND status = ?`,
		p.Title, p.Content, string(p.Status), platforms, media, nullTime(p.ScheduledFor),
		p.PublishID, p.Round, nullTime(p.SubmittedAt), nullTime(p.PublishedAt), dbTime(p.UpdatedAt),
		p.ID, p.TenantID, string(expected))
	if err != nil {
		return mapError("update post", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return mapError("update post", err)
	} else if n == 0 {
		return r.staleState(ctx, p, expected)
	}
	return nil
}

// staleState explains why a conditional post update matched nothing.
func (r *postRepo) staleState(ctx context.Context, p *model.Post, expected model.PostStatus) error {
	current, err := r.Get(ctx, p.TenantID, p.ID)
	if err != nil {
		return err
	}
	return errors.NewInvalidStateError("post", p.ID, current.Status.String(), expected.String())
}

func (r *postRepo) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error) {
	rows, err := r.c.query(ctx, `SELECT `+postColumns+` FROM post
		WHERE status = ? AND scheduled_for <= ?
		ORDER BY scheduled_for, id
		LIMIT ?`, string(model.PostScheduled), dbTime(now), limit)
	if err != nil {
		return nil, mapError("select due posts", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, mapError("scan post", err)
		}
		posts = append(posts, p)
	}
	return posts, mapError("iterate posts", rows.Err())
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var (
		p                                      model.Post
		status, platforms, media               string
		scheduledFor, submittedAt, publishedAt sql.NullTime
	)
	err := s.Scan(&p.ID, &p.TenantID, &p.OrganizationID, &p.AuthorID, &p.Title, &p.Content, &status,
		&platforms, &media, &scheduledFor, &p.PublishID, &p.Round,
		&submittedAt, &publishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PostStatus(status)
	p.ScheduledFor = timePtr(scheduledFor)
	p.SubmittedAt = timePtr(submittedAt)
	p.PublishedAt = timePtr(publishedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if err := json.Unmarshal([]byte(platforms), &p.Platforms); err != nil {
		return nil, errors.Wrapf(err, "decode platforms of post %s", p.ID)
	}
	if err := json.Unmarshal([]byte(media), &p.Media); err != nil {
		return nil, errors.Wrapf(err, "decode media of post %s", p.ID)
	}
	return &p, nil
}

func encodePostLists(p *model.Post) (platforms, media string, err error) {
	platformList := p.Platforms
	if platformList == nil {
		platformList = []string{}
	}
	mediaList := p.Media
	if mediaList == nil {
		mediaList = []model.MediaItem{}
	}
	pb, err := json.Marshal(platformList)
	if err != nil {
		return "", "", errors.Wrap(err, "encode platforms")
	}
	mb, err := json.Marshal(mediaList)
	if err != nil {
		return "", "", errors.Wrap(err, "encode media")
	}
	return string(pb), string(mb), nil
}
