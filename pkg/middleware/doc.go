// Package middleware はGinベースのwebhook APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークン（HS256署名のJWT）の検証、リクエストログ、パニックリカバリ、
// CORS設定、統一されたエラーレスポンス形式を含む。
package middleware
