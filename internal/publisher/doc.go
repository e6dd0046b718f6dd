// Package publisher は処理済みwebhookイベントをMQTTブローカーへ配信する。
//
// トピック構成:
//   - <prefix>/<switch_id>/event  イベント本体（QoS 1、retainなし）
//   - <prefix>/<switch_id>/state  操作後の状態（QoS 1、retainあり）
//
// ブローカーが設定されていない場合は何もしないPublisherを使う。
package publisher
