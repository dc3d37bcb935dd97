// Package process は監視対象プロセスの起動・準備完了待ち・強制終了を行う
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"
	gops "github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

var (
	ErrNotStarted     = errors.New("process not started")
	ErrAlreadyStarted = errors.New("process already started")
	ErrNotReady       = errors.New("process did not become ready")
	ErrExited         = errors.New("process exited")
)

// killWait は SIGKILL 後に終了を待つ時間
const killWait = time.Second

// Config は起動するプロセスの設定
type Config struct {
	Name              string
	Binary            string        // 実行ファイルの絶対パス
	Params            string        // 引数文字列（シェルと同じ規則で分割する）
	WorkDir           string        // 空なら実行ファイルのディレクトリ
	ReadyTimeout      time.Duration // 準備完了を待つ上限
	ReadyPollInterval time.Duration
	KillGrace         time.Duration // 0 なら SIGTERM を送らずに SIGKILL する
}

// Handle は起動したプロセスを表す
type Handle struct {
	config Config
	logger zerolog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	pid     int
	done    chan struct{}
	exitErr error

	terminateOnce sync.Once
	terminateErr  error
}

// NewHandle はプロセスハンドルを作成する。起動は Start で行う
func NewHandle(cfg Config, logger zerolog.Logger) *Handle {
	if cfg.Name == "" {
		cfg.Name = filepath.Base(cfg.Binary)
	}
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = 100 * time.Millisecond
	}
	return &Handle{
		config: cfg,
		logger: logger.With().Str("target", cfg.Name).Logger(),
	}
}

// SplitParams は引数文字列をシェルと同じ規則で分割する
func SplitParams(params string) ([]string, error) {
	if strings.TrimSpace(params) == "" {
		return nil, nil
	}
	args, err := shlex.Split(params)
	if err != nil {
		return nil, fmt.Errorf("parsing params %q: %w", params, err)
	}
	return args, nil
}

// Start はプロセスを新しいプロセスグループで起動する
// 標準入出力はそのまま引き継ぐ
func (h *Handle) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil {
		return ErrAlreadyStarted
	}

	args, err := SplitParams(h.config.Params)
	if err != nil {
		return err
	}

	workDir := h.config.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(h.config.Binary)
	}

	h.logger.Info().
		Str("binary", h.config.Binary).
		Strs("args", args).
		Str("dir", workDir).
		Msg("starting process")

	// 監視側のキャンセルで対象を巻き込まないよう Context には紐付けない
	cmd := exec.Command(h.config.Binary, args...) //nolint:gosec // Binary は起動前に存在確認済み
	cmd.Dir = workDir
	// 別プロセスグループからの端末読み込みは SIGTTIN で停止するため標準入力は渡さない
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// 子プロセスもまとめて終了できるようにプロセスグループを分ける
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", h.config.Name, err)
	}

	h.cmd = cmd
	h.pid = cmd.Process.Pid
	h.done = make(chan struct{})

	go h.reap(cmd, h.done)

	h.logger.Info().Int("pid", h.pid).Msg("process started")
	return nil
}

// reap はプロセスの終了を待って記録する
func (h *Handle) reap(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	h.mu.Lock()
	h.exitErr = err
	h.mu.Unlock()
	close(done)

	event := h.logger.Info()
	if err != nil {
		event = event.Err(err)
	}
	event.Int("pid", cmd.Process.Pid).Msg("process exited")
}

// WaitReady はプロセスが実行中と確認できるまで待つ
// 準備完了前に終了した場合は ErrExited、時間切れの場合は ErrNotReady を返す
func (h *Handle) WaitReady(ctx context.Context) error {
	h.mu.Lock()
	pid, done := h.pid, h.done
	h.mu.Unlock()

	if done == nil {
		return ErrNotStarted
	}

	if h.config.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ReadyTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(h.config.ReadyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return ErrExited
		default:
		}

		if ready(ctx, pid) {
			h.logger.Debug().Int("pid", pid).Msg("process ready")
			return nil
		}

		select {
		case <-done:
			return ErrExited
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w within %s", ErrNotReady, h.config.ReadyTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ready は pid が実行中でゾンビでないかを返す
func ready(ctx context.Context, pid int) bool {
	p, err := gops.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	running, err := p.IsRunningWithContext(ctx)
	if err != nil || !running {
		return false
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == gops.Zombie {
			return false
		}
	}
	return true
}

// PID はプロセスIDを返す。未起動なら0
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// Exited はプロセス終了時に閉じるチャネルを返す。未起動なら nil
func (h *Handle) Exited() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Running はプロセスが起動済みでまだ終了していないかを返す
func (h *Handle) Running() bool {
	done := h.Exited()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// ExitErr は cmd.Wait の結果を返す。終了前は nil
func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// Terminate はプロセスグループを終了させる。呼び出しは1回目だけ有効
// すでに終了している場合は成功として扱う
func (h *Handle) Terminate() error {
	h.mu.Lock()
	pid, done := h.pid, h.done
	h.mu.Unlock()

	if done == nil {
		return ErrNotStarted
	}

	h.terminateOnce.Do(func() {
		h.terminateErr = h.terminate(pid, done)
	})
	return h.terminateErr
}

func (h *Handle) terminate(pid int, done chan struct{}) error {
	select {
	case <-done:
		// グループに残った子プロセスにも届ける
		signalGroup(pid, unix.SIGKILL)
		return nil
	default:
	}

	if h.config.KillGrace > 0 {
		h.logger.Info().Int("pid", pid).Msg("stopping process")
		if err := signalGroup(pid, unix.SIGTERM); err != nil {
			h.logger.Warn().Err(err).Int("pid", pid).Msg("failed to send SIGTERM to process group")
		}

		select {
		case <-done:
			signalGroup(pid, unix.SIGKILL)
			h.logger.Info().Msg("process stopped gracefully")
			return nil
		case <-time.After(h.config.KillGrace):
			h.logger.Warn().Dur("timeout", h.config.KillGrace).Msg("graceful shutdown timeout, sending SIGKILL")
		}
	}

	h.logger.Info().Int("pid", pid).Msg("killing process")
	if err := signalGroup(pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("killing process group %s: %w", h.config.Name, err)
	}

	select {
	case <-done:
		h.logger.Info().Msg("process killed")
	case <-time.After(killWait):
		h.logger.Warn().Int("pid", pid).Msg("process did not exit after SIGKILL")
	}
	return nil
}

// signalGroup はプロセスグループにシグナルを送る。存在しない場合は成功とする
func signalGroup(pid int, sig unix.Signal) error {
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
