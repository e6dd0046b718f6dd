// Package history は処理済みwebhook呼び出しの履歴をSQLiteに保存する。
//
// スキーマは埋め込みのマイグレーションファイルからpkg/migrationで適用される。
package history
