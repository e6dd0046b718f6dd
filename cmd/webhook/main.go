// Home Assistant受信webhookサービスのエントリポイント。
// JWTで認証したwebhook呼び出しを、Home Assistantの仮想スイッチ
// （input_booleanヘルパー）の操作に変換する。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/hawebhook/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootOptions はすべてのサブコマンドで共通のフラグ。
type rootOptions struct {
	// configFile は設定ファイルのパス。空の場合は環境変数のみを使う。
	configFile string
	// logLevel はLOG_LEVELを上書きするログレベル。
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd はルートコマンドを生成する。サブコマンド省略時はserveを実行する。
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "webhook",
		Short:         "Home Assistant incoming webhook gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", os.Getenv("CONFIG_FILE"), "設定ファイルのパス（JSON/YAML）")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "ログレベル（debug, info, warning, error）")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newTokenCmd(opts))
	return rootCmd
}

// loadViper はフラグを反映したviperを生成する。
func loadViper(cmd *cobra.Command, opts *rootOptions) (*viper.Viper, error) {
	v, err := config.NewViper(opts.configFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		v.Set("log_level", opts.logLevel)
	}
	return v, nil
}
