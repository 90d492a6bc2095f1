package s3blob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Archiver exports closed positions to monthly JSONL objects so the hot
// database can be pruned independently of long-term reporting.
type Archiver struct {
	blob      domain.BlobWriter
	positions domain.PositionStore
	log       *slog.Logger
}

func NewArchiver(blob domain.BlobWriter, positions domain.PositionStore, log *slog.Logger) *Archiver {
	return &Archiver{
		blob:      blob,
		positions: positions,
		log:       log.With("component", "archiver"),
	}
}

func archivePath(kind string, at time.Time) string {
	return fmt.Sprintf("%s/%s.jsonl", kind, at.Format("2006-01"))
}

// ArchiveClosedPositions uploads all positions closed before the cutoff,
// grouped into one object per exit month.
func (a *Archiver) ArchiveClosedPositions(ctx context.Context, before time.Time) (int, error) {
	closed, err := a.positions.ListClosedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list closed positions: %w", err)
	}
	if len(closed) == 0 {
		return 0, nil
	}

	byMonth := make(map[string][]domain.Position)
	for _, pos := range closed {
		if pos.ExitedAt == nil {
			continue
		}
		key := archivePath("positions", pos.ExitedAt.UTC())
		byMonth[key] = append(byMonth[key], pos)
	}

	total := 0
	for key, batch := range byMonth {
		buf, err := marshalJSONL(batch)
		if err != nil {
			return total, err
		}
		if err := a.blob.Put(ctx, key, buf, "application/x-ndjson"); err != nil {
			return total, err
		}
		total += len(batch)
		a.log.Info("archived positions", "object", key, "count", len(batch))
	}
	return total, nil
}
