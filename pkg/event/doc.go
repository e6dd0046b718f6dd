// Package event はwebhook経由で行われたスイッチ操作を表すイベントを定義する。
//
// イベントは操作履歴ストアへの記録とMQTTへの配信に共通の形式として使用する。
package event
