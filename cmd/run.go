package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/char5742/quitbit/internal/args"
	"github.com/char5742/quitbit/internal/config"
	"github.com/char5742/quitbit/internal/display"
	"github.com/char5742/quitbit/internal/features"
	"github.com/char5742/quitbit/internal/feedback"
	"github.com/char5742/quitbit/internal/logger"
	"github.com/char5742/quitbit/internal/process"
	"github.com/char5742/quitbit/internal/watchdog"
)

const runCommandName = "run"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   runCommandName + " --buttons=0+1+2 --exec=/path/to/program [options] [rr]",
		Short: "Launch the program and watch for the button combo (default command)",
		// オプションの形式が独自なので cobra には解析させない
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		RunE:               runWatchdog,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// loadConfig は設定ファイルと環境変数から設定を作る
// 明示的に指定されたファイルが無い場合はエラー、標準のファイルが無い場合は作成する
// 標準のファイルを読み書きできない場合はデフォルト設定で続行する
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf(".env の読み込みに失敗しました: %w", err)
	}

	var cfg *config.Config
	if path != "" {
		var err error
		if cfg, err = config.ReadConfig(path); err != nil {
			return nil, err
		}
	} else {
		cfg = loadDefaultConfig()
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDefaultConfig() *config.Config {
	log := logger.GetLogger()

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		log.Warn().Err(err).Msg("設定ディレクトリが分からないためデフォルト設定を使用します")
		return config.DefaultConfig()
	}

	cfg, err := config.LoadConfig(defaultPath)
	if err != nil {
		log.Warn().Err(err).Str("path", defaultPath).Msg("設定ファイルの読み込みに失敗しました。デフォルト設定を使用します")
		return config.DefaultConfig()
	}
	return cfg
}

func runWatchdog(cmd *cobra.Command, argv []string) error {
	stdout := cmd.OutOrStdout()

	opts, err := args.Parse(argv, fileExists)
	if err != nil {
		var usageErr *args.UsageError
		if errors.As(err, &usageErr) {
			args.Usage(stdout, usageErr.Reason)
			return nil
		}
		return err
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		args.Usage(stdout, fmt.Sprintf("config: %v", err))
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		args.Usage(stdout, fmt.Sprintf("config: log: %v", err))
		return nil
	}
	logger.SetGlobal(logger.GetLogger().With().Str("run_id", uuid.NewString()).Logger())
	log := logger.WithComponent("watchdog")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var supervisorOpts []watchdog.Option
	supervisorOpts = append(supervisorOpts, watchdog.WithLogger(log))

	if opts.RestoreDisplay {
		guard, err := display.Capture(ctx, display.NewXrandr(cfg.Display.Command), logger.WithComponent("display"))
		if err != nil {
			log.Warn().Err(err).Msg("画面モードを記録できないため復元は行いません")
		} else {
			supervisorOpts = append(supervisorOpts, watchdog.WithDisplayGuard(guard))
		}
	}

	if cfg.Feedback.Beep {
		supervisorOpts = append(supervisorOpts, watchdog.WithOnFire(feedback.Beep))
	}

	samplerLog := logger.WithComponent("sampler")
	monitor := features.NewControllerMonitor(samplerLog)
	defer monitor.Close()

	source := features.NewEvdevSource(monitor, samplerLog)
	defer source.Close()

	sampler := features.NewSampler(source, opts.Selector, samplerLog)

	proc := process.NewHandle(process.Config{
		Binary:            opts.Exec,
		Params:            opts.Params,
		ReadyTimeout:      cfg.Watchdog.ReadyTimeout,
		ReadyPollInterval: cfg.Watchdog.ReadyPollInterval,
		KillGrace:         cfg.Watchdog.KillGrace,
	}, logger.WithComponent("process"))

	supervisor := watchdog.New(watchdog.Config{
		Combo:          opts.Combo,
		Policy:         cfg.MatchPolicy(),
		Hold:           opts.Hold,
		PollInterval:   cfg.Watchdog.PollInterval,
		ExitWithTarget: cfg.Watchdog.ExitWithTarget,
	}, sampler, proc, supervisorOpts...)

	log.Info().
		Str("exec", opts.Exec).
		Str("controller", opts.Selector.String()).
		Bool("restore_display", opts.RestoreDisplay).
		Msg("起動します")

	result, err := supervisor.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("対象プロセスを起動できませんでした")
		return err
	}

	log.Info().
		Str("reason", result.Reason.String()).
		Int("ticks", result.Ticks).
		Str("pinned_controller", sampler.Pinned()).
		Msg("終了します")
	return nil
}
