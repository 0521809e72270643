// Package dbtest はテスト用のインメモリデータベースとフィクスチャを提供する。
package dbtest

import (
	"database/sql"
	"testing"
	"time"

	"github.com/nao1215/meetup/internal/database"
	participationdb "github.com/nao1215/meetup/internal/participation/db"
)

// Open はマイグレーション済みのインメモリデータベースを開く。テスト終了時に閉じる。
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.MemoryPath, nil)
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Point は緯度経度の組。
type Point struct {
	Lat float64
	Lon float64
}

// Seoul と Busan はテスト用の座標。
var (
	Seoul = &Point{Lat: 37.5665, Lon: 126.9780}
	Busan = &Point{Lat: 35.1796, Lon: 129.0756}
)

func nullPoint(p *Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lon, Valid: true}
}

// CreateUser はユーザーを作成する。locがnilなら座標なし。
func CreateUser(t testing.TB, db *sql.DB, id, name string, loc *Point) {
	t.Helper()

	lat, lon := nullPoint(loc)
	err := participationdb.New(db).UpsertUser(t.Context(), participationdb.UpsertUserParams{
		ID:              id,
		DisplayName:     name,
		ProfileImageURL: sql.NullString{String: "https://example.com/" + id + ".png", Valid: true},
		Latitude:        lat,
		Longitude:       lon,
	})
	if err != nil {
		t.Fatalf("テスト用ユーザーの作成に失敗: %v", err)
	}
}

// CreateMeeting はRECRUITING状態のモイムを作成する。locがnilなら座標なし。
func CreateMeeting(t testing.TB, db *sql.DB, id, organizerID string, maxParticipants int64, loc *Point) participationdb.Meeting {
	t.Helper()

	lat, lon := nullPoint(loc)
	m, err := participationdb.New(db).CreateMeeting(t.Context(), participationdb.CreateMeetingParams{
		ID:              id,
		OrganizerID:     organizerID,
		Title:           "テストモイム " + id,
		Latitude:        lat,
		Longitude:       lon,
		MaxParticipants: maxParticipants,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("テスト用モイムの作成に失敗: %v", err)
	}
	return m
}

// GetMeeting はモイムの現在の状態を取得する。
func GetMeeting(t testing.TB, db *sql.DB, id string) participationdb.Meeting {
	t.Helper()

	m, err := participationdb.New(db).GetMeeting(t.Context(), id)
	if err != nil {
		t.Fatalf("モイムの取得に失敗: %v", err)
	}
	return m
}

// CountNotifications はユーザー宛の通知数を数える。
func CountNotifications(t testing.TB, db *sql.DB, userID string) int {
	t.Helper()

	var count int
	if err := db.QueryRowContext(t.Context(),
		"SELECT COUNT(*) FROM notifications WHERE user_id = ?", userID).Scan(&count); err != nil {
		t.Fatalf("通知数の取得に失敗: %v", err)
	}
	return count
}
