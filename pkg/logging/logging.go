package logging

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

// FormatConsole は人間向けのコンソール出力を表すフォーマット名。
const FormatConsole = "console"

var setupOnce sync.Once

// New は指定レベル・フォーマットでwに出力するロガーを生成する。
// formatが"console"の場合は整形出力、それ以外はJSON Lines形式で出力する。
func New(w io.Writer, level, format string) logr.Logger {
	setupOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		zerologr.NameFieldName = "logger"
		zerologr.NameSeparator = "/"
	})

	zl := zerolog.New(w)
	if strings.EqualFold(format, FormatConsole) {
		zl = zl.Output(zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		})
	}
	zl = zl.Level(ParseLevel(level)).With().Timestamp().Logger()

	return zerologr.New(&zl)
}

// ParseLevel はLOG_LEVEL形式の文字列をzerologのレベルに変換する。
// 未知の値はinfoとして扱う。
// logrには警告レベルがなく警告はInfoで出力されるため、warningはinfoとして扱う。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return zerolog.DebugLevel
	case "error", "critical", "fatal":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// IsDebug はレベル文字列がdebug相当かどうかを返す。
func IsDebug(level string) bool {
	return ParseLevel(level) <= zerolog.DebugLevel
}
