package webhook

import (
	"time"

	"github.com/nao1215/hawebhook/pkg/event"
)

// serviceName はルートエンドポイントが返すサービス名。
const serviceName = "Home Assistant Incoming Webhook"

// serviceVersion はルートエンドポイントが返すバージョン。
const serviceVersion = "1.0.0"

// rootResponse はGET /のレスポンス。
type rootResponse struct {
	Name               string `json:"name"`
	Version            string `json:"version"`
	Status             string `json:"status"`
	SwitchesConfigured int    `json:"switches_configured"`
}

// webhookRequest はPOST /webhookのリクエストボディ。
type webhookRequest struct {
	// SwitchID は操作対象のスイッチID。
	SwitchID string `json:"switch_id" binding:"required"`
	// Action は実行する操作。
	Action event.Action `json:"action" binding:"required,oneof=on off toggle status"`
	// Attributes はスイッチに設定する任意の属性。
	Attributes map[string]any `json:"attributes"`
}

// webhookResponse はPOST /webhookの成功レスポンス。
type webhookResponse struct {
	Status     string         `json:"status"`
	SwitchID   string         `json:"switch_id"`
	Action     event.Action   `json:"action"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
	Error      *string        `json:"error"`
	Details    *string        `json:"details"`
}

// historyQuery はGET /historyのクエリパラメータ。
type historyQuery struct {
	// SwitchID が空でなければそのスイッチの履歴に絞り込む。
	SwitchID string `form:"switch_id"`
	// Limit は返す最大件数。省略時は設定値を使う。
	Limit *int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// historyEntry は履歴1件のJSON表現。
type historyEntry struct {
	ID         string         `json:"id"`
	SwitchID   string         `json:"switch_id"`
	EntityID   string         `json:"entity_id"`
	Action     event.Action   `json:"action"`
	EventType  event.Type     `json:"event_type"`
	Issuer     string         `json:"issuer"`
	RequestID  string         `json:"request_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
	CreatedAt  string         `json:"created_at"`
}

// historyResponse はGET /historyのレスポンス。
type historyResponse struct {
	Status string         `json:"status"`
	Count  int            `json:"count"`
	Events []historyEntry `json:"events"`
}

// toHistoryEntries はイベントをJSONレスポンスに変換する。
func toHistoryEntries(events []event.Event) []historyEntry {
	entries := make([]historyEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, historyEntry{
			ID:         e.ID,
			SwitchID:   e.SwitchID,
			EntityID:   e.EntityID,
			Action:     e.Action,
			EventType:  e.EventType,
			Issuer:     e.Issuer,
			RequestID:  e.RequestID,
			State:      e.State,
			Attributes: e.Attributes,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return entries
}
