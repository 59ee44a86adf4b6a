// Package journal persists the ledger's transaction log to SQLite.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mintbay/marketledger/internal/entity"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const busyTimeoutMs = 5000

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	item TEXT NOT NULL,
	at   INTEGER NOT NULL
);`

// Store appends committed transitions and replays them in commit order.
type Store struct {
	db   *sql.DB
	file string
}

func NewStore(filePath string) (*Store, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve journal path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, file: absPath}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes one committed transition. Seq is assigned by SQLite in
// commit order.
func (s *Store) Append(kind entity.TransitionKind, item entity.MarketItem) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO transitions (kind, item, at) VALUES (?, ?, ?)",
		string(kind), string(body), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}

	zap.L().With(
		zap.String("kind", string(kind)),
		zap.Uint64("itemId", item.ItemId),
	).Debug("Journal: Appended transition")

	return nil
}

// All returns every transition in ascending seq order.
func (s *Store) All() ([]entity.Transition, error) {
	rows, err := s.db.Query("SELECT seq, kind, item, at FROM transitions ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	transitions := make([]entity.Transition, 0)
	for rows.Next() {
		var (
			t    entity.Transition
			body string
			at   int64
		)
		if err := rows.Scan(&t.Seq, &t.Kind, &body, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &t.Item); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		t.At = time.UnixMilli(at)

		transitions = append(transitions, t)
	}

	return transitions, rows.Err()
}
