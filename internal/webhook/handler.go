package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/hawebhook/internal/homeassistant"
	"github.com/nao1215/hawebhook/pkg/event"
	"github.com/nao1215/hawebhook/pkg/middleware"
)

// ErrUnknownSwitch は設定されていないスイッチIDが指定されたことを表す。
var ErrUnknownSwitch = errors.New("スイッチが設定されていません")

// handleRoot はサービス情報を返すハンドラ。
func (s *Server) handleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, rootResponse{
			Name:               serviceName,
			Version:            serviceVersion,
			Status:             "running",
			SwitchesConfigured: len(s.cfg.Switches),
		})
	}
}

// handleWebhook はスイッチを操作し、操作後の状態を返すハンドラ。
func (s *Server) handleWebhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req webhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondError(c, http.StatusUnprocessableEntity, "Validation error", err.Error())
			return
		}

		s.log.Info("webhookを受信しました", "switch_id", req.SwitchID, "action", req.Action)

		ctx := c.Request.Context()
		state, err := s.execute(ctx, req)
		if err != nil {
			s.respondError(c, req.SwitchID, err)
			return
		}

		s.log.Info("webhookを処理しました", "switch_id", req.SwitchID, "action", req.Action, "state", state.State)

		c.JSON(http.StatusOK, webhookResponse{
			Status:     "success",
			SwitchID:   req.SwitchID,
			Action:     req.Action,
			State:      state.State,
			Attributes: state.Attributes,
		})

		e := event.New(req.SwitchID, homeassistant.EntityID(req.SwitchID), req.Action, state.State, state.Attributes)
		e.Issuer = middleware.GetClaims(c).Issuer
		e.RequestID = middleware.GetRequestID(c)
		s.emitAsync(ctx, e)
	}
}

// execute はスイッチ操作、属性設定、状態取得を順に実行する。
// statusは操作を行わず、属性が指定されていればどの操作でも属性を設定する。
func (s *Server) execute(ctx context.Context, req webhookRequest) (homeassistant.State, error) {
	if _, ok := s.cfg.SwitchByID(req.SwitchID); !ok {
		return homeassistant.State{}, fmt.Errorf("%w: %s", ErrUnknownSwitch, req.SwitchID)
	}

	var err error
	switch req.Action {
	case event.ActionOn:
		err = s.switches.TurnOn(ctx, req.SwitchID)
	case event.ActionOff:
		err = s.switches.TurnOff(ctx, req.SwitchID)
	case event.ActionToggle:
		err = s.switches.Toggle(ctx, req.SwitchID)
	case event.ActionStatus:
	}
	if err != nil {
		return homeassistant.State{}, err
	}

	if len(req.Attributes) > 0 {
		if err := s.switches.SetAttributes(ctx, req.SwitchID, req.Attributes); err != nil {
			return homeassistant.State{}, err
		}
	}

	return s.switches.GetState(ctx, req.SwitchID)
}

// respondError はexecuteのエラーをHTTPステータスに変換して返す。
func (s *Server) respondError(c *gin.Context, switchID string, err error) {
	if errors.Is(err, ErrUnknownSwitch) {
		s.log.Info("警告: 設定されていないスイッチが指定されました", "switch_id", switchID)
		middleware.RespondError(c, http.StatusNotFound, fmt.Sprintf("Switch '%s' is not configured", switchID), "")
		return
	}

	s.log.Error(err, "webhookの処理に失敗しました", "switch_id", switchID)
	middleware.RespondError(c, http.StatusInternalServerError, "Internal server error", "")
}

// emitAsync はemitをバックグラウンドで実行する。
// リクエストのキャンセルは引き継がず、emitTimeoutで打ち切る。Runは終了前に完了を待つ。
func (s *Server) emitAsync(ctx context.Context, e *event.Event) {
	s.pending.Go(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		s.emit(ctx, e)
	})
}

// emit はイベントを履歴に保存し、配信する。
// 失敗はログに記録するだけでレスポンスには影響しない。
func (s *Server) emit(ctx context.Context, e *event.Event) {
	if s.history != nil {
		if err := s.history.Record(ctx, e); err != nil {
			s.log.Error(err, "履歴の保存に失敗しました", "event_id", e.ID)
		}
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Error(err, "イベントの配信に失敗しました", "event_id", e.ID)
	}
}

// handleHistory は処理済みwebhookの履歴を新しい順に返すハンドラ。
func (s *Server) handleHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.history == nil {
			middleware.RespondError(c, http.StatusServiceUnavailable, "History is disabled", "")
			return
		}

		var q historyQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			middleware.RespondError(c, http.StatusUnprocessableEntity, "Validation error", err.Error())
			return
		}

		limit := s.cfg.HistoryLimit
		if q.Limit != nil {
			limit = *q.Limit
		}

		events, err := s.history.List(c.Request.Context(), q.SwitchID, limit)
		if err != nil {
			s.log.Error(err, "履歴の取得に失敗しました")
			middleware.RespondError(c, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		c.JSON(http.StatusOK, historyResponse{
			Status: "success",
			Count:  len(events),
			Events: toHistoryEntries(events),
		})
	}
}
