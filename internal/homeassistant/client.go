package homeassistant

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/nao1215/hawebhook/internal/config"
	"github.com/nao1215/hawebhook/pkg/httpclient"
)

// entityPrefix は仮想スイッチのエンティティIDの接頭辞。
const entityPrefix = "input_boolean.webhook_"

// AttrLastTriggeredAt はSetAttributesが自動で付与する属性名。
const AttrLastTriggeredAt = "last_triggered_at"

// EntityID はスイッチIDに対応するエンティティIDを返す。
func EntityID(switchID string) string {
	return entityPrefix + switchID
}

// State はエンティティの状態と属性。
type State struct {
	// State は "on" や "off" などの状態文字列。
	State string `json:"state"`
	// Attributes はエンティティの属性。
	Attributes map[string]any `json:"attributes"`
}

// serviceRequest はinput_booleanサービス呼び出しのリクエストボディ。
type serviceRequest struct {
	EntityID string `json:"entity_id"`
}

// createRequest はinput_boolean.createのリクエストボディ。
type createRequest struct {
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Initial bool   `json:"initial"`
}

// Client はHome Assistant REST APIクライアント。
type Client struct {
	http *httpclient.Client
	log  logr.Logger
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// New は新しいClientを生成する。
// baseURLには "http://supervisor/core" のようにAPIパスを含まないURLを指定する。
func New(baseURL, token string, timeout time.Duration, log logr.Logger) *Client {
	return &Client{
		http: httpclient.New(strings.TrimRight(baseURL, "/")+"/api",
			httpclient.WithTimeout(timeout),
			httpclient.WithBearerToken(token),
		),
		log: log.WithName("homeassistant"),
		now: time.Now,
	}
}

// GetState はスイッチの現在の状態を取得する。
// レスポンスにstateがなければ "unknown"、attributesがなければ空のマップを返す。
func (c *Client) GetState(ctx context.Context, switchID string) (State, error) {
	var st State
	if err := c.http.GetJSON(ctx, "/states/"+EntityID(switchID), &st); err != nil {
		return State{}, fmt.Errorf("状態の取得に失敗 (%s): %w", switchID, err)
	}
	if st.State == "" {
		st.State = "unknown"
	}
	if st.Attributes == nil {
		st.Attributes = map[string]any{}
	}
	return st, nil
}

// TurnOn はスイッチをオンにする。
func (c *Client) TurnOn(ctx context.Context, switchID string) error {
	return c.callService(ctx, "turn_on", switchID)
}

// TurnOff はスイッチをオフにする。
func (c *Client) TurnOff(ctx context.Context, switchID string) error {
	return c.callService(ctx, "turn_off", switchID)
}

// Toggle はスイッチの状態を反転する。
func (c *Client) Toggle(ctx context.Context, switchID string) error {
	return c.callService(ctx, "toggle", switchID)
}

// callService はinput_booleanドメインのサービスを呼び出す。
func (c *Client) callService(ctx context.Context, service, switchID string) error {
	req := serviceRequest{EntityID: EntityID(switchID)}
	if err := c.http.PostJSON(ctx, "/services/input_boolean/"+service, req, nil); err != nil {
		return fmt.Errorf("サービス呼び出しに失敗 (%s, %s): %w", service, switchID, err)
	}
	c.log.V(1).Info("サービスを呼び出しました", "service", service, "entity_id", req.EntityID)
	return nil
}

// SetAttributes は既存の属性にattrsを上書きマージし、last_triggered_atを付与して書き戻す。
// 現在の状態の取得に失敗した場合はエラーを返す。
// 書き戻しの失敗は警告としてログに記録するだけでエラーにはしない。
func (c *Client) SetAttributes(ctx context.Context, switchID string, attrs map[string]any) error {
	current, err := c.GetState(ctx, switchID)
	if err != nil {
		return err
	}

	merged := maps.Clone(current.Attributes)
	maps.Copy(merged, attrs)
	merged[AttrLastTriggeredAt] = c.now().Format(time.RFC3339)

	entityID := EntityID(switchID)
	body := State{State: current.State, Attributes: merged}
	if err := c.http.PostJSON(ctx, "/states/"+entityID, body, nil); err != nil {
		c.log.Info("警告: 属性の更新に失敗しました", "entity_id", entityID, "error", err.Error())
	}
	return nil
}

// EnsureSwitch はスイッチに対応するinput_booleanヘルパーが存在することを保証する。
// 状態取得が404の場合のみヘルパーを作成する。
func (c *Client) EnsureSwitch(ctx context.Context, sw config.SwitchConfig) error {
	entityID := EntityID(sw.ID)
	err := c.http.GetJSON(ctx, "/states/"+entityID, nil)
	if err == nil {
		c.log.V(1).Info("ヘルパーは既に存在します", "entity_id", entityID)
		return nil
	}
	if !httpclient.IsNotFound(err) {
		return fmt.Errorf("ヘルパーの存在確認に失敗 (%s): %w", sw.ID, err)
	}

	req := createRequest{Name: sw.Name, Icon: sw.Icon, Initial: false}
	if err := c.http.PostJSON(ctx, "/services/input_boolean/create", req, nil); err != nil {
		return fmt.Errorf("ヘルパーの作成に失敗 (%s): %w", sw.ID, err)
	}
	c.log.Info("ヘルパーを作成しました", "entity_id", entityID, "name", sw.Name)
	return nil
}

// InitializeSwitches は設定された全スイッチに対してEnsureSwitchを実行する。
// 個々の失敗はログに記録し、処理は中断しない。
func (c *Client) InitializeSwitches(ctx context.Context, switches []config.SwitchConfig) {
	for _, sw := range switches {
		if err := c.EnsureSwitch(ctx, sw); err != nil {
			c.log.Error(err, "スイッチの初期化に失敗しました", "switch_id", sw.ID)
		}
	}
}
