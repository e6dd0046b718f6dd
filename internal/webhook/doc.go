// Package webhook は仮想スイッチを操作するwebhook APIのHTTPサーバーを提供する。
//
// エンドポイント:
//   - GET  /         サービス情報
//   - GET  /health   ヘルスチェック
//   - POST /webhook  スイッチ操作（JWT認証）
//   - GET  /history  処理済みwebhookの履歴（JWT認証）
package webhook
