// Package logger は zerolog による構造化ログを提供する
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalLogger zerolog.Logger

// Config はログ出力の設定
type Config struct {
	Level      string `toml:"level" yaml:"level" json:"level"`
	Debug      bool   `toml:"debug" yaml:"debug" json:"debug"`
	Output     string `toml:"output" yaml:"output" json:"output"`                // stdout または stderr
	Format     string `toml:"format" yaml:"format" json:"format"`                // console または json
	TimeFormat string `toml:"time_format" yaml:"time_format" json:"time_format"` // 空なら RFC3339
}

func init() {
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// DefaultConfig は標準のログ設定を返す
// 使い方の表示と混ざらないよう標準エラーに出力する
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: "stderr",
		Format: "console",
	}
}

// New は設定からロガーを作成する
func New(config Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stderr
	switch strings.ToLower(config.Output) {
	case "", "stderr":
	case "stdout":
		output = os.Stdout
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log output %q", config.Output)
	}

	return newWithWriter(config, output)
}

func newWithWriter(config Config, output io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(strings.ToLower(config.Level))
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	timeFormat := time.RFC3339
	if config.TimeFormat != "" {
		timeFormat = config.TimeFormat
	}

	switch strings.ToLower(config.Format) {
	case "", "console":
		return zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}).
			Level(level).
			With().
			Timestamp().
			Logger(), nil
	case "json":
		// zerolog.TimeFieldFormat はパッケージ全体の設定なので、時刻はロガーごとのフックで書く
		return zerolog.New(output).
			Level(level).
			Hook(timestampHook{format: timeFormat}), nil
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", config.Format)
	}
}

// timestampHook は指定した書式で時刻フィールドを付与する
type timestampHook struct {
	format string
}

func (h timestampHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str(zerolog.TimestampFieldName, time.Now().Format(h.format))
}

// Init はグローバルロガーを設定する
func Init(config Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}

	globalLogger = l
	log.Logger = globalLogger

	return nil
}

// SetGlobal はグローバルロガーを差し替える
func SetGlobal(l zerolog.Logger) {
	globalLogger = l
	log.Logger = globalLogger
}

func GetLogger() zerolog.Logger {
	return globalLogger
}

func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
