// Package storage persiste la actividad del bot en SQLite (pure Go, sin CGo).
package storage

// sqlite.go — persistencia de trade events y cierres de ronda.
//
// Dos tablas append-only:
//   - `trade_events`: una fila por acción del engine (entry, fill, exit,
//     cancel, forced_clear). Los forced clears quedan auditables aquí.
//   - `settlements`: una fila por ventana que salió del set activo, con el
//     PnL realizado y el gasto acumulado de esa ronda.
//
// Prune automático al arrancar: events > 30d, settlements > 90d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS trade_events (
    id          TEXT PRIMARY KEY,
    action      TEXT     NOT NULL,
    market_slug TEXT     NOT NULL,
    instrument  TEXT     NOT NULL DEFAULT '',
    direction   TEXT     NOT NULL,
    price       REAL     NOT NULL DEFAULT 0,
    size        REAL     NOT NULL DEFAULT 0,
    reason      TEXT     NOT NULL DEFAULT '',
    at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settlements (
    market_slug   TEXT PRIMARY KEY,
    instrument    TEXT     NOT NULL DEFAULT '',
    price_to_beat REAL     NOT NULL DEFAULT 0,
    final_price   REAL     NOT NULL DEFAULT 0,
    trades        INTEGER  NOT NULL DEFAULT 0,
    spent_usdc    REAL     NOT NULL DEFAULT 0,
    realized_pnl  REAL     NOT NULL DEFAULT 0,
    settled_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_at      ON trade_events(at DESC);
CREATE INDEX IF NOT EXISTS idx_events_market  ON trade_events(market_slug);
CREATE INDEX IF NOT EXISTS idx_settled_at     ON settlements(settled_at DESC);
`

const (
	retentionEvents      = 30 * 24 * time.Hour
	retentionSettlements = 90 * 24 * time.Hour
)

// SQLiteStorage implementa ports.Storage.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveTradeEvent persiste una acción del engine. Idempotente por ID.
func (s *SQLiteStorage) SaveTradeEvent(ctx context.Context, ev domain.TradeEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_events
			(id, action, market_slug, instrument, direction, price, size, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		ev.ID, string(ev.Action), ev.MarketSlug, ev.Instrument,
		string(ev.Direction), ev.Price, ev.Size, ev.Reason, ev.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTradeEvent: %w", err)
	}
	return nil
}

// SaveSettlement persiste el cierre de una ronda. Upsert por slug: si la
// ventana reaparece en el feed y vuelve a salir, gana el último snapshot.
func (s *SQLiteStorage) SaveSettlement(ctx context.Context, st domain.RoundSettlement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements
			(market_slug, instrument, price_to_beat, final_price, trades,
			 spent_usdc, realized_pnl, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_slug) DO UPDATE SET
			final_price  = excluded.final_price,
			trades       = excluded.trades,
			spent_usdc   = excluded.spent_usdc,
			realized_pnl = excluded.realized_pnl,
			settled_at   = excluded.settled_at`,
		st.MarketSlug, st.Instrument, st.PriceToBeat, st.FinalPrice,
		st.Trades, st.SpentUSDC, st.RealizedPnL, st.SettledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSettlement: %w", err)
	}
	return nil
}

// GetSettlements devuelve los cierres registrados en el rango [from, to].
func (s *SQLiteStorage) GetSettlements(ctx context.Context, from, to time.Time) ([]domain.RoundSettlement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_slug, instrument, price_to_beat, final_price, trades,
		       spent_usdc, realized_pnl, settled_at
		FROM settlements
		WHERE settled_at >= ? AND settled_at <= ?
		ORDER BY settled_at DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetSettlements: %w", err)
	}
	defer rows.Close()

	var out []domain.RoundSettlement
	for rows.Next() {
		var st domain.RoundSettlement
		if err := rows.Scan(
			&st.MarketSlug, &st.Instrument, &st.PriceToBeat, &st.FinalPrice,
			&st.Trades, &st.SpentUSDC, &st.RealizedPnL, &st.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetSettlements: scan: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetSettlements: rows: %w", err)
	}
	return out, nil
}

// Close cierra la conexión limpiamente.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina datos fuera de retención. Best effort.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	now := time.Now().UTC()
	s.db.ExecContext(ctx, `DELETE FROM trade_events WHERE at < ?`, now.Add(-retentionEvents))
	s.db.ExecContext(ctx, `DELETE FROM settlements WHERE settled_at < ?`, now.Add(-retentionSettlements))
}
