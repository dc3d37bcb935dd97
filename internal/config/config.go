package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/char5742/quitbit/internal/combo"
	"github.com/char5742/quitbit/internal/display"
	"github.com/char5742/quitbit/internal/logger"
)

// 環境変数による上書き
const (
	EnvLogLevel     = "QUITBIT_LOG_LEVEL"
	EnvLogFormat    = "QUITBIT_LOG_FORMAT"
	EnvPollInterval = "QUITBIT_POLL_INTERVAL"
	EnvMatchPolicy  = "QUITBIT_MATCH_POLICY"
)

// ポーリング間隔の許容範囲
const (
	MinPollInterval = time.Millisecond
	MaxPollInterval = time.Second
)

// ErrNotFound は明示的に指定された設定ファイルが存在しないことを表す
var ErrNotFound = errors.New("config file not found")

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Watchdog WatchdogConfig `toml:"watchdog" yaml:"watchdog"`
	Match    MatchConfig    `toml:"match" yaml:"match"`
	Display  DisplayConfig  `toml:"display" yaml:"display"`
	Feedback FeedbackConfig `toml:"feedback" yaml:"feedback"`
	Log      logger.Config  `toml:"log" yaml:"log"`
}

// WatchdogConfig は監視ループの設定
type WatchdogConfig struct {
	PollInterval      time.Duration `toml:"poll_interval" yaml:"poll_interval"`
	ReadyTimeout      time.Duration `toml:"ready_timeout" yaml:"ready_timeout"`
	ReadyPollInterval time.Duration `toml:"ready_poll_interval" yaml:"ready_poll_interval"`
	ExitWithTarget    bool          `toml:"exit_with_target" yaml:"exit_with_target"`
	KillGrace         time.Duration `toml:"kill_grace" yaml:"kill_grace"`
}

// MatchConfig は複数コントローラの判定方法の設定
type MatchConfig struct {
	Policy string `toml:"policy" yaml:"policy"`
}

// DisplayConfig は画面モード復元の設定
type DisplayConfig struct {
	Command string `toml:"command" yaml:"command"`
}

// FeedbackConfig はコンボ成立時の通知の設定
type FeedbackConfig struct {
	Beep bool `toml:"beep" yaml:"beep"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Watchdog: WatchdogConfig{
			PollInterval:      50 * time.Millisecond,
			ReadyTimeout:      10 * time.Second,
			ReadyPollInterval: 100 * time.Millisecond,
			ExitWithTarget:    true,
			KillGrace:         0,
		},
		Match: MatchConfig{
			Policy: combo.PolicyUnion.String(),
		},
		Display: DisplayConfig{
			Command: display.DefaultCommand,
		},
		Feedback: FeedbackConfig{
			Beep: false,
		},
		Log: logger.DefaultConfig(),
	}
}

// GetDefaultConfigDir は設定ファイルを置くディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "quitbit"), nil
}

// GetDefaultConfigPath は標準の設定ファイルのパスを返す
func GetDefaultConfigPath() (string, error) {
	dir, err := GetDefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
// ファイルが存在しない場合はデフォルト設定を保存して返す
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	if err := decodeFile(configPath, config); err != nil {
		return config, err
	}
	return config, nil
}

// ReadConfig は設定ファイルを読み込む。ファイルが無ければ ErrNotFound を返す
func ReadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, fmt.Errorf("%w: %s", ErrNotFound, configPath)
	}

	if err := decodeFile(configPath, config); err != nil {
		return config, err
	}
	return config, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decodeFile(configPath string, config *Config) error {
	if isYAML(configPath) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("parsing %s: %w", configPath, err)
		}
		return nil
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}
	return nil
}

// SaveConfig は設定をファイルに保存する。拡張子が .yaml/.yml なら YAML、それ以外は TOML
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// ファイルを開く（なければ作成）
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(configPath) {
		encoder := yaml.NewEncoder(f)
		if err := encoder.Encode(config); err != nil {
			return err
		}
		return encoder.Close()
	}

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}

// LoadEnv は .env ファイルを読み込んで環境変数に設定する
// 既に設定されている環境変数は上書きしない。存在しないファイルは無視する
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv は環境変数で設定を上書きする
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		c.Watchdog.PollInterval = d
	}
	if v := getenv(EnvMatchPolicy); v != "" {
		c.Match.Policy = v
	}
	return nil
}

// Validate は設定値の範囲を検証する
func (c *Config) Validate() error {
	w := c.Watchdog
	if w.PollInterval < MinPollInterval || w.PollInterval > MaxPollInterval {
		return fmt.Errorf("watchdog.poll_interval %s out of range (%s-%s)", w.PollInterval, MinPollInterval, MaxPollInterval)
	}
	if w.ReadyTimeout < 0 {
		return fmt.Errorf("watchdog.ready_timeout must not be negative: %s", w.ReadyTimeout)
	}
	if w.ReadyPollInterval <= 0 {
		return fmt.Errorf("watchdog.ready_poll_interval must be positive: %s", w.ReadyPollInterval)
	}
	if w.KillGrace < 0 {
		return fmt.Errorf("watchdog.kill_grace must not be negative: %s", w.KillGrace)
	}
	if _, err := combo.ParsePolicy(c.Match.Policy); err != nil {
		return fmt.Errorf("match.policy: %w", err)
	}
	if strings.TrimSpace(c.Display.Command) == "" {
		return errors.New("display.command must not be empty")
	}
	return nil
}

// MatchPolicy は判定ポリシーを返す。Validate 済みであること
func (c *Config) MatchPolicy() combo.Policy {
	p, _ := combo.ParsePolicy(c.Match.Policy)
	return p
}
