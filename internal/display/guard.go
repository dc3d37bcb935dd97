package display

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Guard は起動前の画面モードを保持し、Restore で1回だけ元に戻す
type Guard struct {
	system   System
	logger   zerolog.Logger
	mu       sync.Mutex
	snapshot []Mode
	restored bool
}

// Capture は現在の画面モードを記録する
func Capture(ctx context.Context, system System, logger zerolog.Logger) (*Guard, error) {
	modes, err := system.Modes(ctx)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	g := &Guard{system: system, logger: logger, snapshot: modes}

	current := 0
	for _, m := range modes {
		if m.Current {
			current++
			logger.Debug().Str("mode", m.String()).Msg("画面モードを記録しました")
		}
	}
	logger.Info().Int("modes", len(modes)).Int("current", current).Msg("画面モードを記録しました")

	return g, nil
}

// Snapshot は記録した画面モードのコピーを返す。復元後は空
func (g *Guard) Snapshot() []Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Mode(nil), g.snapshot...)
}

// Restore は記録時に使われていたモードを記録順に適用する
// 失敗しても残りの出力の復元を続け、2回目以降の呼び出しは何もしない
func (g *Guard) Restore(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.restored {
		return nil
	}
	g.restored = true
	snapshot := g.snapshot
	g.snapshot = nil

	var errs []error
	for _, m := range snapshot {
		if !m.Current {
			continue
		}

		result, err := g.system.Apply(ctx, m)
		switch {
		case err != nil:
			g.logger.Warn().Err(err).Str("mode", m.String()).Msg("画面モードの復元に失敗しました")
			errs = append(errs, err)
		case result == ApplyNeedsRestart:
			g.logger.Warn().Str("mode", m.String()).Msg("画面モードの復元には再起動が必要です")
		case result == ApplyFailed:
			g.logger.Warn().Str("mode", m.String()).Msg("画面モードの復元に失敗しました")
			errs = append(errs, fmt.Errorf("applying %s: %s", m, result))
		default:
			g.logger.Debug().Str("mode", m.String()).Msg("画面モードを復元しました")
		}
	}

	return errors.Join(errs...)
}

// Restored は Restore が呼ばれたかを返す
func (g *Guard) Restored() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restored
}
