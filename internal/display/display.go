// Package display は起動前の画面モードを記録し、終了時に元へ戻す
package display

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable は画面モードを取得・変更できないことを表す
var ErrUnavailable = errors.New("display modes unavailable")

// Mode は1つの出力で利用できる画面モード
type Mode struct {
	Output    string  // 出力名（HDMI-1 など）
	Name      string  // モード名（1920x1080 など）
	Rate      float64 // リフレッシュレート（Hz）
	Current   bool    // 現在使われているモード
	Preferred bool    // 出力の推奨モード
}

func (m Mode) String() string {
	return fmt.Sprintf("%s %s@%.2f", m.Output, m.Name, m.Rate)
}

// ApplyResult は画面モード変更の結果
type ApplyResult int

const (
	ApplySuccess ApplyResult = iota
	ApplyFailed
	ApplyNeedsRestart
)

func (r ApplyResult) String() string {
	switch r {
	case ApplySuccess:
		return "success"
	case ApplyNeedsRestart:
		return "needs-restart"
	default:
		return "failed"
	}
}

// System は画面モードの列挙と変更を行う
type System interface {
	Modes(ctx context.Context) ([]Mode, error)
	Apply(ctx context.Context, mode Mode) (ApplyResult, error)
}
