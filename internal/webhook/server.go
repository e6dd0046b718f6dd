package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/nao1215/hawebhook/internal/config"
	"github.com/nao1215/hawebhook/internal/homeassistant"
	"github.com/nao1215/hawebhook/internal/publisher"
	"github.com/nao1215/hawebhook/pkg/event"
	"github.com/nao1215/hawebhook/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間の上限。
const shutdownTimeout = 10 * time.Second

// emitTimeout は履歴保存と配信1回あたりの待ち時間の上限。
const emitTimeout = 15 * time.Second

// SwitchController はHome Assistant側のスイッチ操作を抽象化する。
type SwitchController interface {
	GetState(ctx context.Context, switchID string) (homeassistant.State, error)
	TurnOn(ctx context.Context, switchID string) error
	TurnOff(ctx context.Context, switchID string) error
	Toggle(ctx context.Context, switchID string) error
	SetAttributes(ctx context.Context, switchID string, attrs map[string]any) error
}

// EventStore は処理済みwebhookの履歴ストア。
type EventStore interface {
	Record(ctx context.Context, e *event.Event) error
	List(ctx context.Context, switchID string, limit int) ([]event.Event, error)
}

// Server はwebhook APIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はアプリケーション設定。
	cfg *config.Config
	// switches はHome Assistantのスイッチ操作クライアント。
	switches SwitchController
	// history は履歴ストア。nilの場合は履歴を保存しない。
	history EventStore
	// publisher はイベントの配信先。
	publisher publisher.Publisher
	// log はサーバーのロガー。
	log logr.Logger
	// pending は実行中の履歴保存と配信。
	pending sync.WaitGroup
}

// NewServer は新しいwebhookサーバーを生成する。
// historyがnilの場合は履歴の保存とGET /historyを無効にする。
// pubがnilの場合はイベントを配信しない。
func NewServer(cfg *config.Config, switches SwitchController, history EventStore, pub publisher.Publisher, log logr.Logger) *Server {
	if pub == nil {
		pub = publisher.Nop()
	}
	log = log.WithName("webhook")

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	s := &Server{
		router:    router,
		cfg:       cfg,
		switches:  switches,
		history:   history,
		publisher: pub,
		log:       log,
	}
	s.setupRoutes()

	return s
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTPサーバーを起動します", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTPサーバーが停止しました: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("シャットダウンします")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	if err := s.drain(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTPサーバーが異常終了しました: %w", err)
	}
	return nil
}

// drain は実行中の履歴保存と配信の完了をctxの期限まで待つ。
func (s *Server) drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("履歴保存と配信の完了待ちが打ち切られました: %w", ctx.Err())
	}
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// サービス情報
	s.router.GET("/", s.handleRoot())
	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	auth := middleware.JWTAuth(s.cfg.JWTSecret, s.log)
	// スイッチ操作
	s.router.POST("/webhook", auth, s.handleWebhook())
	// 履歴取得
	s.router.GET("/history", auth, s.handleHistory())

	s.router.NoRoute(func(c *gin.Context) {
		middleware.RespondError(c, http.StatusNotFound, "Not Found", "")
	})
	s.router.NoMethod(func(c *gin.Context) {
		middleware.RespondError(c, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})
}
