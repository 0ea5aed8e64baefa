package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage/memory"
)

type staticSource struct {
	bars []domain.PriceBar
	err  error
}

func (s *staticSource) Bars(context.Context) ([]domain.PriceBar, error) {
	return s.bars, s.err
}

func TestIngestor_StoresBars(t *testing.T) {
	store := memory.NewBarStore()
	ing := NewIngestor(IngestorOptions{
		Source: &staticSource{bars: []domain.PriceBar{
			daily("600519", 1, 100, 105, 99, 104, 1000),
			daily("600519", 8, 104, 106, 102, 103, 900),
		}},
		BarStore: store,
		Logger:   zerolog.Nop(),
	})

	n, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 bars stored, got %d", n)
	}

	stored, err := store.GetByInstrument(context.Background(), "600519")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 stored bars, got %d", len(stored))
	}
}

func TestIngestor_WeeklyResample(t *testing.T) {
	store := memory.NewBarStore()
	ing := NewIngestor(IngestorOptions{
		Source: &staticSource{bars: []domain.PriceBar{
			daily("600519", 1, 100, 105, 99, 104, 1000),
			daily("600519", 3, 104, 110, 103, 108, 2000),
			daily("600519", 8, 108, 109, 101, 102, 1500),
		}},
		BarStore: store,
		Weekly:   true,
		Logger:   zerolog.Nop(),
	})

	n, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 weekly bars, got %d", n)
	}
}

func TestIngestor_SourceError(t *testing.T) {
	wantErr := errors.New("upstream down")
	ing := NewIngestor(IngestorOptions{
		Source:   &staticSource{err: wantErr},
		BarStore: memory.NewBarStore(),
		Logger:   zerolog.Nop(),
	})

	if _, err := ing.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("expected source error, got %v", err)
	}
}
