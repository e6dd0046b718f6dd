// Package config はwebhookゲートウェイの設定を読み込む。
//
// 設定はデフォルト値、任意の設定ファイル（JSON/YAML、アドオンの/data/options.jsonなど）、
// 環境変数の順に上書きされる。仮想スイッチの一覧はSWITCHES環境変数のJSON文字列、
// または設定ファイルのswitchesリストから読み込む。
package config
