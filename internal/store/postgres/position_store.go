package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// PositionStore is the Postgres implementation of domain.PositionStore.
type PositionStore struct {
	client *Client
}

var _ domain.PositionStore = (*PositionStore)(nil)

func NewPositionStore(client *Client) *PositionStore {
	return &PositionStore{client: client}
}

const positionColumns = `
	id, signal_id, ticker, side, quantity, entry_price, stop_loss,
	target_1, target_2, trailing_enabled, atr, status, entered_at,
	exited_at, exit_price, exit_value, exit_reason, pnl, pnl_percent,
	r_multiple, holding_period_minutes`

func (s *PositionStore) Create(ctx context.Context, pos domain.Position) error {
	_, err := s.client.Pool.Exec(ctx, `
		INSERT INTO positions (
			id, signal_id, ticker, side, quantity, entry_price, stop_loss,
			target_1, target_2, trailing_enabled, atr, status, entered_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		pos.ID, pos.SignalID, pos.Ticker, pos.Side, pos.Quantity,
		pos.EntryPrice, pos.StopLoss, pos.Target1, pos.Target2,
		pos.TrailingEnabled, pos.ATR, pos.Status, pos.EnteredAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create position: %w", err)
	}
	return nil
}

func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.client.Pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)
	pos, err := scanPositionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position: %w", err)
	}
	return pos, nil
}

func (s *PositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.client.Pool.Query(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE status = 'open' ORDER BY entered_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()
	return scanPositionRows(rows)
}

func (s *PositionStore) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := s.client.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM positions WHERE status = 'open'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count open positions: %w", err)
	}
	return n, nil
}

// CloseIfOpen transitions a position to closed only when it is still open.
// The WHERE status = 'open' guard makes concurrent closes resolve to exactly
// one winner.
func (s *PositionStore) CloseIfOpen(ctx context.Context, id string, close domain.PositionClose) error {
	tag, err := s.client.Pool.Exec(ctx, `
		UPDATE positions SET
			status = 'closed',
			exited_at = $2,
			exit_price = $3,
			exit_value = $4,
			exit_reason = $5,
			pnl = $6,
			pnl_percent = $7,
			r_multiple = $8,
			holding_period_minutes = $9
		WHERE id = $1 AND status = 'open'`,
		id, close.ExitedAt, close.ExitPrice, close.ExitValue, close.ExitReason,
		close.PnL, close.PnLPercent, close.RMultiple, close.HoldingPeriodMinutes,
	)
	if err != nil {
		return fmt.Errorf("postgres: close position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.client.Pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM positions WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: close position: %w", err)
		}
		if exists {
			return domain.ErrPositionClosed
		}
		return domain.ErrNotFound
	}
	return nil
}

func (s *PositionStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.client.Pool.Query(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE status = 'closed'
		  AND ($3::timestamptz IS NULL OR exited_at >= $3)
		  AND ($4::timestamptz IS NULL OR exited_at <= $4)
		ORDER BY exited_at DESC
		LIMIT $1 OFFSET $2`,
		limit, opts.Offset, opts.Since, opts.Until,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list position history: %w", err)
	}
	defer rows.Close()
	return scanPositionRows(rows)
}

func (s *PositionStore) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	rows, err := s.client.Pool.Query(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE status = 'closed' AND exited_at < $1
		ORDER BY exited_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed positions: %w", err)
	}
	defer rows.Close()
	return scanPositionRows(rows)
}

func scanPositionRow(row pgx.Row) (domain.Position, error) {
	var pos domain.Position
	err := row.Scan(
		&pos.ID, &pos.SignalID, &pos.Ticker, &pos.Side, &pos.Quantity,
		&pos.EntryPrice, &pos.StopLoss, &pos.Target1, &pos.Target2,
		&pos.TrailingEnabled, &pos.ATR, &pos.Status, &pos.EnteredAt,
		&pos.ExitedAt, &pos.ExitPrice, &pos.ExitValue, &pos.ExitReason,
		&pos.PnL, &pos.PnLPercent, &pos.RMultiple, &pos.HoldingPeriodMinutes,
	)
	return pos, err
}

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	var out []domain.Position
	for rows.Next() {
		pos, err := scanPositionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate positions: %w", err)
	}
	return out, nil
}
