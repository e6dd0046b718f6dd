package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/nao1215/hawebhook/internal/config"
	"github.com/nao1215/hawebhook/pkg/event"
)

const (
	// connectTimeout は初回接続の待ち時間の上限。
	connectTimeout = 10 * time.Second
	// publishTimeout は1メッセージの配信確認の待ち時間の上限。
	publishTimeout = 5 * time.Second
	// disconnectQuiesce は切断時に処理中の送信を待つミリ秒数。
	disconnectQuiesce = 250
	// qos は配信に使うQoSレベル。
	qos = 1
)

// ErrPublishTimeout は配信確認が時間内に得られなかったことを表す。
var ErrPublishTimeout = errors.New("MQTT配信がタイムアウトしました")

// Publisher はイベントの配信先。
type Publisher interface {
	// Publish はイベントと操作後の状態を配信する。
	Publish(ctx context.Context, e *event.Event) error
	// Close は接続を閉じる。
	Close()
}

// nop は何もしないPublisher。
type nop struct{}

// Nop は何もしないPublisherを返す。
func Nop() Publisher {
	return nop{}
}

func (nop) Publish(context.Context, *event.Event) error { return nil }

func (nop) Close() {}

// statePayload はstateトピックに配信するJSON構造。
type statePayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// MQTT はpaho MQTTクライアントを使うPublisher。
type MQTT struct {
	client pahomqtt.Client
	prefix string
	log    logr.Logger
}

// New はcfgに従ってPublisherを生成する。
// ブローカーが空の場合はNopを返す。接続に失敗した場合はエラーを返す。
func New(cfg config.MQTTConfig, log logr.Logger) (Publisher, error) {
	if cfg.Broker == "" {
		return Nop(), nil
	}
	log = log.WithName("publisher")

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Error(err, "MQTTブローカーとの接続が切断されました")
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("MQTTブローカーへの接続がタイムアウト (%s)", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("MQTTブローカーへの接続に失敗 (%s): %w", cfg.Broker, err)
	}
	log.Info("MQTTブローカーに接続しました", "broker", cfg.Broker)

	return newMQTT(client, cfg.TopicPrefix, log), nil
}

// newMQTT は接続済みクライアントからPublisherを生成する。
func newMQTT(client pahomqtt.Client, prefix string, log logr.Logger) *MQTT {
	return &MQTT{client: client, prefix: prefix, log: log}
}

// EventTopic はイベント本体を配信するトピックを返す。
func EventTopic(prefix, switchID string) string {
	return fmt.Sprintf("%s/%s/event", prefix, switchID)
}

// StateTopic は操作後の状態を配信するトピックを返す。
func StateTopic(prefix, switchID string) string {
	return fmt.Sprintf("%s/%s/state", prefix, switchID)
}

// Publish はイベントをeventトピックへ、状態をstateトピックへ配信する。
func (m *MQTT) Publish(ctx context.Context, e *event.Event) error {
	payload, err := event.Marshal(e)
	if err != nil {
		return err
	}
	if err := m.publish(ctx, EventTopic(m.prefix, e.SwitchID), false, payload); err != nil {
		return err
	}

	state, err := json.Marshal(statePayload{
		State:      e.State,
		Attributes: e.Attributes,
		UpdatedAt:  e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("状態のシリアライズに失敗: %w", err)
	}
	if err := m.publish(ctx, StateTopic(m.prefix, e.SwitchID), true, state); err != nil {
		return err
	}

	m.log.V(1).Info("イベントを配信しました", "event_id", e.ID, "switch_id", e.SwitchID)
	return nil
}

// publish は1メッセージを配信し、確認を待つ。
func (m *MQTT) publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	token := m.client.Publish(topic, qos, retained, payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("MQTT配信が中断されました (%s): %w", topic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w (%s)", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT配信に失敗 (%s): %w", topic, err)
	}
	return nil
}

// Close はブローカーとの接続を切断する。
func (m *MQTT) Close() {
	m.client.Disconnect(disconnectQuiesce)
	m.log.Info("MQTTブローカーから切断しました")
}
