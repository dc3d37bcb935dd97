package watchdog

import (
	"context"
	"time"
)

// Clock は時刻の取得と待機を抽象化する
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock は実時間の Clock を返す
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep は d だけ待つ。ctx がキャンセルされた場合はそのエラーを返す
func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
