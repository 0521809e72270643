package participationdb

import (
	"context"
	"database/sql"
)

const getUser = `SELECT id, display_name, profile_image_url, latitude, longitude FROM users WHERE id = ?`

// GetUser はIDでユーザーを取得する。
func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.DisplayName,
		&i.ProfileImageURL,
		&i.Latitude,
		&i.Longitude,
	)
	return i, err
}

const upsertUser = `INSERT INTO users (id, display_name, profile_image_url, latitude, longitude)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    display_name = excluded.display_name,
    profile_image_url = excluded.profile_image_url,
    latitude = excluded.latitude,
    longitude = excluded.longitude`

// UpsertUserParams はUpsertUserの引数。
type UpsertUserParams struct {
	ID              string
	DisplayName     string
	ProfileImageURL sql.NullString
	Latitude        sql.NullFloat64
	Longitude       sql.NullFloat64
}

// UpsertUser はユーザー管理サービスから同期されたプロフィールを保存する。
func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.ExecContext(ctx, upsertUser,
		arg.ID,
		arg.DisplayName,
		arg.ProfileImageURL,
		arg.Latitude,
		arg.Longitude,
	)
	return err
}
