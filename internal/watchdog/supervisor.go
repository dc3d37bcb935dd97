// Package watchdog は対象プロセスを起動し、コンボの長押しを検出したら終了させる
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/char5742/quitbit/internal/combo"
	"github.com/char5742/quitbit/internal/process"
	"github.com/char5742/quitbit/internal/types"
)

// Sampler は1ティック分のコントローラ状態を返す
type Sampler interface {
	Sample() []types.Reading
}

// Process は監視対象のプロセス
type Process interface {
	Start(ctx context.Context) error
	WaitReady(ctx context.Context) error
	Exited() <-chan struct{}
	Terminate() error
	PID() int
}

// Restorer は終了時に画面モードを元に戻す
type Restorer interface {
	Restore(ctx context.Context) error
}

// Config は監視ループの設定
type Config struct {
	Combo          combo.Combo
	Policy         combo.Policy
	Hold           time.Duration // 発火に必要な長押し時間。0なら最初の一致で発火
	PollInterval   time.Duration
	ExitWithTarget bool // 対象が自分で終了したら監視も終える
}

// Reason は監視ループが終了した理由
type Reason int

const (
	ReasonFired Reason = iota
	ReasonTargetExited
	ReasonCancelled
)

func (r Reason) String() string {
	switch r {
	case ReasonFired:
		return "fired"
	case ReasonTargetExited:
		return "target-exited"
	default:
		return "cancelled"
	}
}

// Result は監視ループの結果
type Result struct {
	Reason Reason
	Held   time.Duration // 発火時の連続一致時間
	Ticks  int
}

// Supervisor は対象プロセスの起動から終了までを管理する
// 画面モードとプロセスは Run の間このループだけが操作する
type Supervisor struct {
	config   Config
	sampler  Sampler
	process  Process
	guard    Restorer
	released bool
	clock    Clock
	logger   zerolog.Logger
	onFire   func() error
}

// Option は Supervisor の設定を変更する
type Option func(*Supervisor)

// WithDisplayGuard は終了時に画面モードを復元する
func WithDisplayGuard(guard Restorer) Option {
	return func(s *Supervisor) {
		s.guard = guard
	}
}

func WithClock(clock Clock) Option {
	return func(s *Supervisor) {
		s.clock = clock
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithOnFire は発火直後、終了処理の前に呼ばれる関数を設定する
func WithOnFire(fn func() error) Option {
	return func(s *Supervisor) {
		s.onFire = fn
	}
}

// DefaultPollInterval はポーリング間隔の既定値
const DefaultPollInterval = 50 * time.Millisecond

// New は Supervisor を作成する
func New(cfg Config, sampler Sampler, proc Process, opts ...Option) *Supervisor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	s := &Supervisor{
		config:  cfg,
		sampler: sampler,
		process: proc,
		clock:   RealClock(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run は対象を起動し、コンボが成立するか対象が終了するか ctx がキャンセルされるまで監視する
// どの経路で終わっても画面モードは1回だけ復元される。キャンセル時は対象を終了させない
func (s *Supervisor) Run(ctx context.Context) (Result, error) {
	if s.config.Combo.IsZero() {
		return Result{}, combo.ErrEmptyCombo
	}

	defer s.release(ctx)

	if err := s.process.Start(ctx); err != nil {
		return Result{}, fmt.Errorf("starting target: %w", err)
	}

	if err := s.process.WaitReady(ctx); err != nil {
		switch {
		case errors.Is(err, process.ErrExited):
			s.logger.Info().Msg("対象プロセスは準備完了前に終了しました")
			if s.config.ExitWithTarget {
				return Result{Reason: ReasonTargetExited}, nil
			}
		case ctx.Err() != nil:
			return Result{Reason: ReasonCancelled}, nil
		default:
			// 準備完了を確認できなくても監視は始める
			s.logger.Warn().Err(err).Msg("対象プロセスの準備完了を確認できませんでした")
		}
	}

	s.logger.Info().
		Str("combo", s.config.Combo.String()).
		Str("policy", s.config.Policy.String()).
		Dur("hold", s.config.Hold).
		Dur("poll_interval", s.config.PollInterval).
		Int("pid", s.process.PID()).
		Msg("コンボの監視を開始します")

	return s.loop(ctx)
}

func (s *Supervisor) loop(ctx context.Context) (Result, error) {
	hold := combo.NewHoldTimer(s.config.Hold)
	exited := s.process.Exited()
	last := s.clock.Now()

	for ticks := 1; ; ticks++ {
		if ctx.Err() != nil {
			s.logger.Info().Msg("監視を中断しました")
			return Result{Reason: ReasonCancelled, Ticks: ticks - 1}, nil
		}

		if s.config.ExitWithTarget && isClosed(exited) {
			s.logger.Info().Msg("対象プロセスが終了したため監視を終了します")
			return Result{Reason: ReasonTargetExited, Ticks: ticks - 1}, nil
		}

		matching := s.config.Policy.Evaluate(s.config.Combo, s.sampler.Sample())

		now := s.clock.Now()
		delta := now.Sub(last)
		last = now

		wasMatching := hold.Matching()
		if hold.Observe(matching, delta) {
			s.logger.Info().Dur("held", hold.Elapsed()).Int("ticks", ticks).Msg("コンボが成立しました")
			s.fire(ctx)
			return Result{Reason: ReasonFired, Held: hold.Elapsed(), Ticks: ticks}, nil
		}
		if matching != wasMatching {
			s.logger.Debug().Bool("matching", matching).Dur("remaining", hold.Remaining()).Msg("コンボの状態が変わりました")
		}

		if err := s.clock.Sleep(ctx, s.config.PollInterval); err != nil {
			s.logger.Info().Msg("監視を中断しました")
			return Result{Reason: ReasonCancelled, Ticks: ticks}, nil
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
