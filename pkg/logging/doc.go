// Package logging はgo-logr/logrのインターフェースでzerologを使う構造化ロガーを提供する。
//
// 全パッケージはlogr.Loggerを受け取り、出力先やレベルの決定はこのパッケージに集約する。
package logging
