package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/nao1215/hawebhook/pkg/event"
	"github.com/nao1215/hawebhook/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath はインメモリデータベースを使うときのパス。
const MemoryPath = ":memory:"

// timeFormat はcreated_atの保存形式。固定長なので文字列比較で時刻順に並ぶ。
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Store はwebhook履歴のSQLiteストア。
type Store struct {
	db  *sql.DB
	log logr.Logger
}

// Open はSQLiteデータベースを開き、マイグレーションを適用する。
// pathが ":memory:" 以外の場合は親ディレクトリを作成し、WALモードで開く。
func Open(ctx context.Context, path string, log logr.Logger) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// インメモリDBは接続ごとに別のDBになるため、接続を1本に制限する
	db.SetMaxOpenConns(1)

	log = log.WithName("history")
	if err := migration.Run(ctx, db, migrationsFS, "migrations", log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Record はイベントを1件保存する。未知の操作を持つイベントは保存しない。
func (s *Store) Record(ctx context.Context, e *event.Event) error {
	if !e.Action.Valid() {
		return fmt.Errorf("%w: %q", event.ErrInvalidAction, e.Action)
	}
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return fmt.Errorf("属性のシリアライズに失敗: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO webhook_events
			(id, switch_id, entity_id, action, event_type, issuer, request_id, state, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SwitchID, e.EntityID, string(e.Action), string(e.EventType),
		e.Issuer, e.RequestID, e.State, string(attrs), e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("イベントの保存に失敗: %w", err)
	}
	return nil
}

// List は新しい順にイベントを最大limit件返す。
// switchIDが空でなければそのスイッチのイベントに絞り込む。
func (s *Store) List(ctx context.Context, switchID string, limit int) ([]event.Event, error) {
	query := `
		SELECT id, switch_id, entity_id, action, event_type, issuer, request_id, state, attributes, created_at
		FROM webhook_events`
	args := []any{}
	if switchID != "" {
		query += " WHERE switch_id = ?"
		args = append(args, switchID)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		var (
			e         event.Event
			action    string
			eventType string
			attrs     string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.SwitchID, &e.EntityID, &action, &eventType,
			&e.Issuer, &e.RequestID, &e.State, &attrs, &createdAt); err != nil {
			return nil, fmt.Errorf("行の読み込みに失敗: %w", err)
		}
		e.Action = event.Action(action)
		e.EventType = event.Type(eventType)
		if err := json.Unmarshal([]byte(attrs), &e.Attributes); err != nil {
			return nil, fmt.Errorf("属性のデシリアライズに失敗 (%s): %w", e.ID, err)
		}
		if e.Attributes == nil {
			e.Attributes = map[string]any{}
		}
		if e.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("作成日時の解析に失敗 (%s): %w", e.ID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧の走査に失敗: %w", err)
	}
	return events, nil
}
