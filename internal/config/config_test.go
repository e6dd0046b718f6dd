package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// testSecret はテスト用の32文字以上のシークレット。
const testSecret = "test-secret-key-at-least-32-chars-long"

// newTestViper は環境変数に依存しないテスト用viperを生成する。
func newTestViper(t *testing.T, values map[string]any) *viper.Viper {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

// TestLoad はLoad関数を検証する。
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("デフォルト値が設定されること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(newTestViper(t, nil))
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.Port != 8099 {
			t.Errorf("Port = %d, want 8099", cfg.Port)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
		}
		if cfg.HAURL != "http://supervisor/core" {
			t.Errorf("HAURL = %q", cfg.HAURL)
		}
		if cfg.HATimeout != 10*time.Second {
			t.Errorf("HATimeout = %v, want 10s", cfg.HATimeout)
		}
		if len(cfg.Switches) != 0 {
			t.Errorf("Switches = %v, want empty", cfg.Switches)
		}
		if len(cfg.CORSAllowedOrigins) != 0 {
			t.Errorf("CORSAllowedOrigins = %v, want empty", cfg.CORSAllowedOrigins)
		}
		if cfg.MQTT.Broker != "" || cfg.MQTT.TopicPrefix != "ha-webhook" {
			t.Errorf("MQTT = %+v", cfg.MQTT)
		}
	})

	t.Run("JSON文字列のスイッチ一覧を読み込みアイコンを補完すること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(newTestViper(t, map[string]any{
			"switches": `[{"id":"garage","name":"Garage"},{"id":"door","name":"Door","icon":"mdi:door"}]`,
		}))
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if len(cfg.Switches) != 2 {
			t.Fatalf("len(Switches) = %d, want 2", len(cfg.Switches))
		}
		if cfg.Switches[0].Icon != DefaultIcon {
			t.Errorf("Icon = %q, want %q", cfg.Switches[0].Icon, DefaultIcon)
		}
		if cfg.Switches[1].Icon != "mdi:door" {
			t.Errorf("Icon = %q, want %q", cfg.Switches[1].Icon, "mdi:door")
		}
	})

	t.Run("リスト形式のスイッチ一覧を読み込めること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(newTestViper(t, map[string]any{
			"switches": []any{
				map[string]any{"id": "garage", "name": "Garage"},
			},
		}))
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if len(cfg.Switches) != 1 || cfg.Switches[0].ID != "garage" {
			t.Errorf("Switches = %+v", cfg.Switches)
		}
	})

	t.Run("不正なJSONのスイッチ一覧でエラーが返ること", func(t *testing.T) {
		t.Parallel()

		if _, err := Load(newTestViper(t, map[string]any{"switches": `[{"id":`})); err == nil {
			t.Fatal("Load()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("CORSオリジンをカンマ区切りで読み込むこと", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(newTestViper(t, map[string]any{
			"cors_allowed_origins": " http://a.example , ,http://b.example",
		}))
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if !slices.Equal(cfg.CORSAllowedOrigins, []string{"http://a.example", "http://b.example"}) {
			t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("単位のないha_timeoutを秒として読み込むこと", func(t *testing.T) {
		t.Parallel()

		for raw, want := range map[any]time.Duration{
			"10":    10 * time.Second,
			"2.5":   2500 * time.Millisecond,
			15:      15 * time.Second,
			"500ms": 500 * time.Millisecond,
		} {
			cfg, err := Load(newTestViper(t, map[string]any{"ha_timeout": raw}))
			if err != nil {
				t.Fatalf("Load(%v)でエラーが発生: %v", raw, err)
			}
			if cfg.HATimeout != want {
				t.Errorf("HATimeout(%v) = %v, want %v", raw, cfg.HATimeout, want)
			}
		}
	})

	t.Run("不正なha_timeoutでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		if _, err := Load(newTestViper(t, map[string]any{"ha_timeout": "ten seconds"})); err == nil {
			t.Fatal("Load()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("ログレベルが小文字に正規化されること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(newTestViper(t, map[string]any{"log_level": "DEBUG"}))
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
		}
	})
}

// TestNewViper_Env は環境変数と設定ファイルからの読み込みを検証する。
// t.Setenvを使うため並列実行しない。
func TestNewViper_Env(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9000")
	t.Setenv("HA_TIMEOUT", "3s")
	t.Setenv("SWITCHES", `[{"id":"garage","name":"Garage"}]`)

	t.Run("環境変数から読み込めること", func(t *testing.T) {
		v, err := NewViper("")
		if err != nil {
			t.Fatalf("NewViper()でエラーが発生: %v", err)
		}
		cfg, err := Load(v)
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.JWTSecret != testSecret {
			t.Errorf("JWTSecret = %q", cfg.JWTSecret)
		}
		if cfg.Port != 9000 {
			t.Errorf("Port = %d, want 9000", cfg.Port)
		}
		if cfg.HATimeout != 3*time.Second {
			t.Errorf("HATimeout = %v, want 3s", cfg.HATimeout)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate()でエラーが発生: %v", err)
		}
	})

	t.Run("環境変数が設定ファイルより優先されること", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "options.json")
		content := `{"port": 8123, "ha_url": "http://homeassistant.local:8123", "switches": [{"id": "door", "name": "Door"}]}`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("設定ファイルの作成に失敗: %v", err)
		}

		v, err := NewViper(path)
		if err != nil {
			t.Fatalf("NewViper()でエラーが発生: %v", err)
		}
		cfg, err := Load(v)
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.Port != 9000 {
			t.Errorf("Port = %d, want 9000", cfg.Port)
		}
		if cfg.HAURL != "http://homeassistant.local:8123" {
			t.Errorf("HAURL = %q", cfg.HAURL)
		}
		if len(cfg.Switches) != 1 || cfg.Switches[0].ID != "garage" {
			t.Errorf("Switches = %+v", cfg.Switches)
		}
	})

	t.Run("存在しない設定ファイルでエラーが返ること", func(t *testing.T) {
		if _, err := NewViper(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Fatal("NewViper()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestSwitchByID はSwitchByIDを検証する。
func TestSwitchByID(t *testing.T) {
	t.Parallel()

	cfg := &Config{Switches: []SwitchConfig{
		{ID: "garage", Name: "Garage", Icon: DefaultIcon},
		{ID: "door", Name: "Door", Icon: DefaultIcon},
	}}

	sw, ok := cfg.SwitchByID("door")
	if !ok || sw.Name != "Door" {
		t.Errorf("SwitchByID(door) = %+v, %v", sw, ok)
	}
	if _, ok := cfg.SwitchByID("Door"); ok {
		t.Error("IDは大文字小文字を区別するべき")
	}
	if _, ok := cfg.SwitchByID("nonexistent_switch"); ok {
		t.Error("存在しないスイッチが見つかった")
	}
}

// validConfig は検証に成功する設定を返す。
func validConfig() *Config {
	return &Config{
		JWTSecret: testSecret,
		Port:      8099,
		HATimeout: 10 * time.Second,
		Switches:  []SwitchConfig{{ID: "garage", Name: "Garage", Icon: DefaultIcon}},
	}
}

// TestValidate はValidateを検証する。
func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("正しい設定ではエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		if err := validConfig().Validate(); err != nil {
			t.Errorf("Validate()でエラーが発生: %v", err)
		}
	})

	t.Run("短いシークレットでErrSecretTooShortになること", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.JWTSecret = strings.Repeat("a", MinSecretLength-1)
		if err := cfg.Validate(); !errors.Is(err, ErrSecretTooShort) {
			t.Errorf("err = %v, want ErrSecretTooShort", err)
		}
		if err := cfg.ValidateSecret(); !errors.Is(err, ErrSecretTooShort) {
			t.Errorf("ValidateSecret() = %v, want ErrSecretTooShort", err)
		}
	})

	t.Run("スイッチがない場合ErrNoSwitchesになること", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Switches = nil
		if err := cfg.Validate(); !errors.Is(err, ErrNoSwitches) {
			t.Errorf("err = %v, want ErrNoSwitches", err)
		}
	})

	t.Run("重複したIDでErrDuplicateSwitchになること", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Switches = append(cfg.Switches, SwitchConfig{ID: "garage", Name: "Garage 2"})
		if err := cfg.Validate(); !errors.Is(err, ErrDuplicateSwitch) {
			t.Errorf("err = %v, want ErrDuplicateSwitch", err)
		}
	})

	t.Run("名前のないスイッチでErrIncompleteSwitchになること", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Switches = append(cfg.Switches, SwitchConfig{ID: "door"})
		if err := cfg.Validate(); !errors.Is(err, ErrIncompleteSwitch) {
			t.Errorf("err = %v, want ErrIncompleteSwitch", err)
		}
	})

	t.Run("短すぎるha_timeoutでErrTimeoutTooShortになること", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.HATimeout = 10 * time.Nanosecond
		if err := cfg.Validate(); !errors.Is(err, ErrTimeoutTooShort) {
			t.Errorf("err = %v, want ErrTimeoutTooShort", err)
		}
	})

	t.Run("複数の問題がまとめて報告されること", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.JWTSecret = ""
		cfg.Switches = nil
		cfg.Port = 0
		err := cfg.Validate()
		if !errors.Is(err, ErrSecretTooShort) || !errors.Is(err, ErrNoSwitches) {
			t.Errorf("err = %v", err)
		}
	})
}
