package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// New は新しいイベントを生成する。
// attributesは呼び出し元の変更から切り離すためにコピーされる。
func New(switchID, entityID string, action Action, state string, attributes map[string]any) *Event {
	attrs := make(map[string]any, len(attributes))
	maps.Copy(attrs, attributes)

	return &Event{
		ID:         uuid.New().String(),
		SwitchID:   switchID,
		EntityID:   entityID,
		Action:     action,
		EventType:  TypeFor(action),
		State:      state,
		Attributes: attrs,
		CreatedAt:  time.Now().UTC(),
	}
}

// Marshal はイベントをJSONにシリアライズする。
func Marshal(e *Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	return data, nil
}

// ErrInvalidAction は未知の操作を持つイベントであることを表す。
var ErrInvalidAction = errors.New("未知の操作です")

// Unmarshal はJSONからイベントをデシリアライズする。
// 操作が既知のものでなければErrInvalidActionを返す。
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("イベントのデシリアライズに失敗: %w", err)
	}
	if !e.Action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, e.Action)
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	return &e, nil
}
