// Package database はSQLiteデータベースを開き、マイグレーションを適用する。
package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/meetup/migrations"
	"github.com/nao1215/meetup/pkg/migration"
)

// MemoryPath はインメモリデータベースを表すパス。
const MemoryPath = ":memory:"

// maxFileConns はファイルデータベースで開く接続の上限。
const maxFileConns = 8

// DSN はパスからmodernc.org/sqlite用の接続文字列を組み立てる。
//
// ファイルデータベースはWALで開き、トランザクションは開始時に書き込みロックを
// 取る。読み取りから書き込みへの昇格でSQLITE_BUSYにならないようにするため。
func DSN(path string) string {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)&_txlock=immediate"
	}
	return dsn
}

// Open はデータベースを開いてマイグレーションを適用する。
//
// インメモリデータベースは接続ごとに別物になるため接続を1本に制限する。
// ファイルデータベースは複数の接続を使い、トランザクション外の読み取りは
// 書き込み中でも並行して進む。
// トランザクション中は必ずそのトランザクション経由でクエリを発行すること。
func Open(ctx context.Context, path string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxFileConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	if _, err := migration.Run(ctx, db, migrations.FS, ".", logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return db, nil
}
