package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/hawebhook/internal/config"
	"github.com/nao1215/hawebhook/internal/history"
	"github.com/nao1215/hawebhook/internal/homeassistant"
	"github.com/nao1215/hawebhook/internal/publisher"
	"github.com/nao1215/hawebhook/internal/webhook"
	"github.com/nao1215/hawebhook/pkg/logging"
	"github.com/spf13/cobra"
)

// newServeCmd はHTTPサーバーを起動するserveコマンドを生成する。
func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

// runServe は設定を読み込み、依存関係を組み立ててサーバーを起動する。
// シグナルを受けるとグレースフルシャットダウンして戻る。
func runServe(cmd *cobra.Command, opts *rootOptions) error {
	v, err := loadViper(cmd, opts)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Error(err, "設定の検証に失敗しました")
		return err
	}
	log.Info("設定を読み込みました", "switches", len(cfg.Switches), "port", cfg.Port)

	if !logging.IsDebug(cfg.LogLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := cmd.Context()

	var store webhook.EventStore
	historyStore, err := history.Open(ctx, cfg.HistoryDB, log)
	if err != nil {
		log.Error(err, "履歴ストアを開けないため、履歴の保存を無効にします", "path", cfg.HistoryDB)
	} else {
		defer func() { _ = historyStore.Close() }()
		store = historyStore
	}

	pub, err := publisher.New(cfg.MQTT, log)
	if err != nil {
		log.Error(err, "MQTTブローカーに接続できないため、イベント配信を無効にします")
		pub = publisher.Nop()
	}
	defer pub.Close()

	ha := homeassistant.New(cfg.HAURL, cfg.SupervisorToken, cfg.HATimeout, log)
	ha.InitializeSwitches(ctx, cfg.Switches)

	server := webhook.NewServer(cfg, ha, store, pub, log)
	log.Info("webhookの受信準備ができました")
	if err := server.Run(ctx); err != nil {
		log.Error(err, "HTTPサーバーが異常終了しました")
		return err
	}
	log.Info("シャットダウンしました")
	return nil
}
