package main

import (
	"fmt"
	"time"

	"github.com/nao1215/hawebhook/internal/config"
	"github.com/nao1215/hawebhook/pkg/middleware"
	"github.com/spf13/cobra"
)

// newTokenCmd はwebhook呼び出し用のトークンを発行するtokenコマンドを生成する。
func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		issuer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed token for webhook callers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := loadViper(cmd, opts)
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSecret(); err != nil {
				return err
			}

			token, err := middleware.GenerateToken(cfg.JWTSecret, issuer, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "webhook-client", "トークンのissクレーム")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "有効期間（0は無期限）")
	return cmd
}
