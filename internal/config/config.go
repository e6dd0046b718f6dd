package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinSecretLength はトークン署名用シークレットに要求する最小文字数。
const MinSecretLength = 32

// MinHATimeout はHome Assistant API呼び出しのタイムアウトとして許容する最小値。
const MinHATimeout = time.Second

// DefaultIcon はアイコン未指定のスイッチに使うMaterial Design Icon。
const DefaultIcon = "mdi:light-switch"

// 設定キー。環境変数名はキーを大文字にしたもの。
const (
	keyJWTSecret          = "jwt_secret"
	keyPort               = "port"
	keyLogLevel           = "log_level"
	keyLogFormat          = "log_format"
	keySupervisorToken    = "supervisor_token"
	keyHAURL              = "ha_url"
	keyHATimeout          = "ha_timeout"
	keySwitches           = "switches"
	keyCORSAllowedOrigins = "cors_allowed_origins"
	keyHistoryDB          = "history_db"
	keyHistoryLimit       = "history_limit"
	keyMQTTBroker         = "mqtt_broker"
	keyMQTTTopicPrefix    = "mqtt_topic_prefix"
	keyMQTTUsername       = "mqtt_username"
	keyMQTTPassword       = "mqtt_password"
	keyMQTTClientID       = "mqtt_client_id"
)

// SwitchConfig は1つの仮想スイッチの設定。
type SwitchConfig struct {
	// ID はwebhook呼び出しで指定するスイッチの一意識別子。
	ID string `json:"id"`
	// Name はHome Assistantに表示される名前。
	Name string `json:"name"`
	// Icon はMaterial Design Iconの名前。
	Icon string `json:"icon"`
}

// MQTTConfig は操作イベントを配信するMQTTブローカーの設定。
type MQTTConfig struct {
	// Broker はブローカーのURL（例: tcp://core-mosquitto:1883）。空の場合は配信しない。
	Broker string
	// TopicPrefix は配信先トピックの接頭辞。
	TopicPrefix string
	// Username はブローカーの認証ユーザー名。
	Username string
	// Password はブローカーの認証パスワード。
	Password string
	// ClientID はMQTTクライアントID。
	ClientID string
}

// Config はアプリケーション全体の設定。
type Config struct {
	// JWTSecret はwebhookトークンの署名検証に使う共有シークレット。
	JWTSecret string
	// Port はHTTPサーバーのリッスンポート。
	Port int
	// LogLevel はログレベル（debug/info/warning/error）。
	LogLevel string
	// LogFormat はログ形式（json/console）。
	LogFormat string
	// SupervisorToken はHome Assistant APIの呼び出しに使うトークン。
	SupervisorToken string
	// HAURL はHome AssistantのベースURL。
	HAURL string
	// HATimeout はHome Assistant API呼び出し1回あたりのタイムアウト。
	HATimeout time.Duration
	// Switches は設定済みの仮想スイッチ一覧。
	Switches []SwitchConfig
	// CORSAllowedOrigins はCORSを許可するオリジン。空の場合CORSは無効。
	CORSAllowedOrigins []string
	// HistoryDB は操作履歴を保存するSQLiteファイルのパス。
	HistoryDB string
	// HistoryLimit は履歴取得時のデフォルト件数。
	HistoryLimit int
	// MQTT はイベント配信の設定。
	MQTT MQTTConfig
}

// setDefaults はviperにデフォルト値を設定する。
func setDefaults(v *viper.Viper) {
	v.SetDefault(keyJWTSecret, "")
	v.SetDefault(keyPort, 8099)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
	v.SetDefault(keySupervisorToken, "")
	v.SetDefault(keyHAURL, "http://supervisor/core")
	v.SetDefault(keyHATimeout, 10*time.Second)
	v.SetDefault(keySwitches, "[]")
	v.SetDefault(keyCORSAllowedOrigins, "")
	v.SetDefault(keyHistoryDB, "/data/webhook.db")
	v.SetDefault(keyHistoryLimit, 50)
	v.SetDefault(keyMQTTBroker, "")
	v.SetDefault(keyMQTTTopicPrefix, "ha-webhook")
	v.SetDefault(keyMQTTUsername, "")
	v.SetDefault(keyMQTTPassword, "")
	v.SetDefault(keyMQTTClientID, "ha-webhook")
}

// NewViper はデフォルト値と環境変数を紐付けたviperを生成する。
// configFileが空でなければその設定ファイルも読み込む。
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("環境変数の紐付けに失敗: key=%s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load はviperから設定を読み込む。
// スイッチ一覧の形式が不正な場合はエラーを返す。
func Load(v *viper.Viper) (*Config, error) {
	switches, err := parseSwitches(v.Get(keySwitches))
	if err != nil {
		return nil, err
	}
	haTimeout, err := parseTimeout(v.Get(keyHATimeout))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		JWTSecret:          v.GetString(keyJWTSecret),
		Port:               v.GetInt(keyPort),
		LogLevel:           strings.ToLower(v.GetString(keyLogLevel)),
		LogFormat:          strings.ToLower(v.GetString(keyLogFormat)),
		SupervisorToken:    v.GetString(keySupervisorToken),
		HAURL:              v.GetString(keyHAURL),
		HATimeout:          haTimeout,
		Switches:           switches,
		CORSAllowedOrigins: parseList(v.Get(keyCORSAllowedOrigins)),
		HistoryDB:          v.GetString(keyHistoryDB),
		HistoryLimit:       v.GetInt(keyHistoryLimit),
		MQTT: MQTTConfig{
			Broker:      v.GetString(keyMQTTBroker),
			TopicPrefix: v.GetString(keyMQTTTopicPrefix),
			Username:    v.GetString(keyMQTTUsername),
			Password:    v.GetString(keyMQTTPassword),
			ClientID:    v.GetString(keyMQTTClientID),
		},
	}
	return cfg, nil
}

// parseSwitches はスイッチ一覧を解釈する。
// 環境変数からはJSON文字列、設定ファイルからはリストとして渡される。
func parseSwitches(raw any) ([]SwitchConfig, error) {
	var data []byte
	switch val := raw.(type) {
	case nil:
		return []SwitchConfig{}, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return []SwitchConfig{}, nil
		}
		data = []byte(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("スイッチ設定の変換に失敗: %w", err)
		}
		data = b
	}

	var switches []SwitchConfig
	if err := json.Unmarshal(data, &switches); err != nil {
		return nil, fmt.Errorf("スイッチ設定のパースに失敗: %w", err)
	}
	for i := range switches {
		if switches[i].Icon == "" {
			switches[i].Icon = DefaultIcon
		}
	}
	if switches == nil {
		switches = []SwitchConfig{}
	}
	return switches, nil
}

// parseTimeout はタイムアウト値を解釈する。
// 単位のない数値は秒として扱い、それ以外は "10s" のようなtime.Duration形式として解釈する。
func parseTimeout(raw any) (time.Duration, error) {
	if d, ok := raw.(time.Duration); ok {
		return d, nil
	}

	s := strings.TrimSpace(fmt.Sprint(raw))
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("ha_timeoutの形式が不正です: %q: %w", s, err)
	}
	return d, nil
}

// parseList はカンマ区切り文字列またはリストを文字列スライスに変換する。
func parseList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	case []string:
		items = val
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// SwitchByID はIDに一致するスイッチ設定を返す。
func (c *Config) SwitchByID(id string) (SwitchConfig, bool) {
	for _, sw := range c.Switches {
		if sw.ID == id {
			return sw, true
		}
	}
	return SwitchConfig{}, false
}

var (
	// ErrSecretTooShort はシークレットがMinSecretLength未満であることを表す。
	ErrSecretTooShort = fmt.Errorf("JWTシークレットは%d文字以上必要です", MinSecretLength)
	// ErrNoSwitches はスイッチが1つも設定されていないことを表す。
	ErrNoSwitches = errors.New("スイッチが設定されていません")
	// ErrDuplicateSwitch は同じIDのスイッチが複数設定されていることを表す。
	ErrDuplicateSwitch = errors.New("スイッチIDが重複しています")
	// ErrIncompleteSwitch はIDまたは名前が空のスイッチがあることを表す。
	ErrIncompleteSwitch = errors.New("スイッチにはidとnameが必要です")
	// ErrTimeoutTooShort はHome Assistant APIのタイムアウトがMinHATimeout未満であることを表す。
	ErrTimeoutTooShort = fmt.Errorf("ha_timeoutは%v以上必要です", MinHATimeout)
)

// ValidateSecret はJWTシークレットの長さを検証する。
func (c *Config) ValidateSecret() error {
	if len(c.JWTSecret) < MinSecretLength {
		return ErrSecretTooShort
	}
	return nil
}

// Validate は起動に必要な設定がそろっているかを検証する。
// 見つかった問題はすべてまとめて返す。
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateSecret(); err != nil {
		errs = append(errs, err)
	}

	if len(c.Switches) == 0 {
		errs = append(errs, ErrNoSwitches)
	}

	seen := make(map[string]struct{}, len(c.Switches))
	for i, sw := range c.Switches {
		if sw.ID == "" || sw.Name == "" {
			errs = append(errs, fmt.Errorf("%w: index=%d", ErrIncompleteSwitch, i))
			continue
		}
		if _, dup := seen[sw.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateSwitch, sw.ID))
		}
		seen[sw.ID] = struct{}{}
	}

	if c.HATimeout < MinHATimeout {
		errs = append(errs, fmt.Errorf("%w: %v", ErrTimeoutTooShort, c.HATimeout))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("ポート番号が不正です: %d", c.Port))
	}

	return errors.Join(errs...)
}
