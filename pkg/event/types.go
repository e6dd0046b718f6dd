package event

import "time"

// Action はwebhook呼び出し元が要求するスイッチ操作を表す。
type Action string

const (
	// ActionOn はスイッチをオンにする。
	ActionOn Action = "on"
	// ActionOff はスイッチをオフにする。
	ActionOff Action = "off"
	// ActionToggle はスイッチの状態を反転する。
	ActionToggle Action = "toggle"
	// ActionStatus は状態を変更せずに現在の状態を取得する。
	ActionStatus Action = "status"
)

// Valid はActionが既知の操作かどうかを返す。
func (a Action) Valid() bool {
	switch a {
	case ActionOn, ActionOff, ActionToggle, ActionStatus:
		return true
	default:
		return false
	}
}

// Type はイベントの種類を表す。
type Type string

const (
	// TypeSwitchTurnedOn はスイッチがオンにされたことを表す。
	TypeSwitchTurnedOn Type = "SwitchTurnedOn"
	// TypeSwitchTurnedOff はスイッチがオフにされたことを表す。
	TypeSwitchTurnedOff Type = "SwitchTurnedOff"
	// TypeSwitchToggled はスイッチの状態が反転されたことを表す。
	TypeSwitchToggled Type = "SwitchToggled"
	// TypeSwitchStatusQueried はスイッチの状態が参照されたことを表す。
	TypeSwitchStatusQueried Type = "SwitchStatusQueried"
)

// TypeFor はActionに対応するイベント種別を返す。
func TypeFor(a Action) Type {
	switch a {
	case ActionOn:
		return TypeSwitchTurnedOn
	case ActionOff:
		return TypeSwitchTurnedOff
	case ActionToggle:
		return TypeSwitchToggled
	default:
		return TypeSwitchStatusQueried
	}
}

// Event は処理済みのwebhook呼び出し1件を表す不変のレコード。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// SwitchID は操作対象の仮想スイッチID。
	SwitchID string `json:"switch_id"`
	// EntityID はHome Assistant側のエンティティID。
	EntityID string `json:"entity_id"`
	// Action は要求された操作。
	Action Action `json:"action"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Issuer は呼び出し元トークンのissクレーム。
	Issuer string `json:"issuer,omitempty"`
	// RequestID はwebhookリクエストのID。
	RequestID string `json:"request_id,omitempty"`
	// State は操作後のエンティティの状態。
	State string `json:"state"`
	// Attributes は操作後のエンティティの属性。
	Attributes map[string]any `json:"attributes"`
	// CreatedAt はイベントが作成された日時（UTC）。
	CreatedAt time.Time `json:"created_at"`
}
