// Package migrations はmeetupデータベースのマイグレーションSQLを埋め込む。
package migrations

import "embed"

// FS はマイグレーションファイル（000001_description.up.sql 形式）を保持する。
//
//go:embed *.sql
var FS embed.FS
