package watchdog

import (
	"context"
	"time"
)

// restoreTimeout は画面モードの復元に使う時間の上限
const restoreTimeout = 10 * time.Second

// fire は通知の後に終了処理を行う
func (s *Supervisor) fire(ctx context.Context) {
	if s.onFire != nil {
		if err := s.onFire(); err != nil {
			s.logger.Debug().Err(err).Msg("通知に失敗しました")
		}
	}
	s.shutdown(ctx)
}

// shutdown は画面モードを復元してから対象プロセスを終了させる
// どちらの失敗も記録するだけで処理は続ける
func (s *Supervisor) shutdown(ctx context.Context) {
	s.release(ctx)

	if err := s.process.Terminate(); err != nil {
		s.logger.Warn().Err(err).Int("pid", s.process.PID()).Msg("対象プロセスの終了に失敗しました")
		return
	}
	s.logger.Info().Int("pid", s.process.PID()).Msg("対象プロセスを終了しました")
}

// release は画面モードを1回だけ復元する
// ctx がキャンセルされていても復元できるよう、キャンセルを切り離した Context を使う
func (s *Supervisor) release(ctx context.Context) {
	if s.guard == nil || s.released {
		return
	}
	s.released = true

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()

	if err := s.guard.Restore(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("画面モードの復元に失敗しました")
		return
	}
	s.logger.Info().Msg("画面モードを復元しました")
}
