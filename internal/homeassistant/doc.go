// Package homeassistant はHome Assistant REST APIのクライアントを提供する。
//
// 仮想スイッチはinput_booleanヘルパーとして表現され、
// スイッチIDがXの場合のエンティティIDは input_boolean.webhook_X となる。
package homeassistant
