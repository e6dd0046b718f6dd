package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestParseLevel はログレベル文字列の変換を検証する。
func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.InfoLevel,
		"warn":    zerolog.InfoLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"unknown": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestNew はロガーの出力内容とレベルフィルタを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("JSON形式でメッセージとキーが出力されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := New(&buf, "info", "json")
		log.Info("スイッチを操作しました", "switch_id", "garage")

		var line map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
			t.Fatalf("ログ行のパースに失敗: %v, out=%s", err, buf.String())
		}
		if line["switch_id"] != "garage" {
			t.Errorf("switch_id = %v, want %q", line["switch_id"], "garage")
		}
		if line[zerolog.MessageFieldName] != "スイッチを操作しました" {
			t.Errorf("message = %v", line[zerolog.MessageFieldName])
		}
	})

	t.Run("warningレベルでも警告行が出力されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := New(&buf, "warning", "json")
		log.Info("警告: 属性の更新に失敗しました", "entity_id", "input_boolean.webhook_garage")
		if !strings.Contains(buf.String(), "警告: 属性の更新に失敗しました") {
			t.Errorf("警告行が出力されていない: %q", buf.String())
		}

		buf.Reset()
		log.V(1).Info("表示されない")
		if buf.Len() != 0 {
			t.Errorf("デバッグ行が出力されてはならない: %s", buf.String())
		}
	})

	t.Run("errorレベルではInfoが出力されないこと", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := New(&buf, "error", "json")
		log.Info("表示されない")
		if buf.Len() != 0 {
			t.Errorf("出力があってはならない: %s", buf.String())
		}

		log.Error(errors.New("boom"), "失敗しました")
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("エラー内容が出力されていない: %s", buf.String())
		}
	})
}

// TestIsDebug はdebug判定を検証する。
func TestIsDebug(t *testing.T) {
	t.Parallel()

	if !IsDebug("debug") {
		t.Error("IsDebug(debug) = false, want true")
	}
	if IsDebug("info") {
		t.Error("IsDebug(info) = true, want false")
	}
}
