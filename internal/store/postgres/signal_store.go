package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// SignalStore is the Postgres implementation of domain.SignalStore.
type SignalStore struct {
	client *Client
}

var _ domain.SignalStore = (*SignalStore)(nil)

func NewSignalStore(client *Client) *SignalStore {
	return &SignalStore{client: client}
}

const signalColumns = `
	id, ticker, action, price, atr, stop_loss, target_1, target_2,
	source, payload, received_at`

func (s *SignalStore) Create(ctx context.Context, sig domain.Signal) error {
	var payload any
	if len(sig.Payload) > 0 {
		payload = sig.Payload
	}
	_, err := s.client.Pool.Exec(ctx, `
		INSERT INTO signals (
			id, ticker, action, price, atr, stop_loss, target_1, target_2,
			source, payload, received_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sig.ID, sig.Ticker, sig.Action, sig.Price, sig.ATR,
		sig.StopLoss, sig.Target1, sig.Target2, sig.Source, payload, sig.ReceivedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create signal: %w", err)
	}
	return nil
}

func (s *SignalStore) GetByID(ctx context.Context, id string) (domain.Signal, error) {
	row := s.client.Pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE id = $1`, id)
	sig, err := scanSignalRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Signal{}, domain.ErrNotFound
		}
		return domain.Signal{}, fmt.Errorf("postgres: get signal: %w", err)
	}
	return sig, nil
}

func (s *SignalStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Signal, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.client.Pool.Query(ctx, `
		SELECT `+signalColumns+` FROM signals
		ORDER BY received_at DESC
		LIMIT $1 OFFSET $2`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals: %w", err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		sig, err := scanSignalRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate signals: %w", err)
	}
	return out, nil
}

func scanSignalRow(row pgx.Row) (domain.Signal, error) {
	var sig domain.Signal
	err := row.Scan(
		&sig.ID, &sig.Ticker, &sig.Action, &sig.Price, &sig.ATR,
		&sig.StopLoss, &sig.Target1, &sig.Target2, &sig.Source,
		&sig.Payload, &sig.ReceivedAt,
	)
	return sig, err
}
