// Package args はコマンドライン引数を検証済みの設定値に変換する
//
// オプションは "--name=value" の形で与える。値に空白が含まれシェルで複数の
// 単語に分かれた場合も、次のオプションが現れるまでを1つの値として扱う。
// 認識できないオプションは無視する。単独の "rr" は位置に関係なく画面モードの
// 復元を有効にする。"--params=" より後ろの "--rr" "--help" は対象に渡す引数になる。
package args

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/char5742/quitbit/internal/combo"
	"github.com/char5742/quitbit/internal/types"
)

// ErrUsage は引数が不正で使い方を表示すべきことを表す
var ErrUsage = errors.New("invalid arguments")

// UsageError は使い方の表示が必要な理由を持つ
// Reason が空なら help の明示的な要求
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	if e.Reason == "" {
		return ErrUsage.Error()
	}
	return fmt.Sprintf("%s: %s", ErrUsage, e.Reason)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

func usageErrorf(format string, a ...any) error {
	return &UsageError{Reason: fmt.Sprintf(format, a...)}
}

// RestoreFlag は画面モードの復元を有効にする単独の引数
const RestoreFlag = "rr"

// Options は検証済みの起動設定
type Options struct {
	Combo          combo.Combo
	Exec           string // 実行ファイルの絶対パス
	Params         string // 実行ファイルに渡す引数文字列
	Selector       types.Selector
	Hold           time.Duration
	RestoreDisplay bool
	ConfigPath     string // 空なら標準の設定ファイル
}

// option は認識するオプションの定義
type option struct {
	long     string
	short    string
	required bool
	value    string // 使い方に表示する値の例
	usage    string
	set      func(o *Options, value string, exists func(string) bool) error
}

var options = []option{
	{
		long: "buttons", short: "b", required: true, value: "0+1+2",
		usage: "buttons that must be held together (indices joined with +)",
		set: func(o *Options, value string, _ func(string) bool) error {
			c, err := combo.Parse(value)
			if err != nil {
				return usageErrorf("--buttons: %v", err)
			}
			o.Combo = c
			return nil
		},
	},
	{
		long: "exec", short: "e", required: true, value: "/path/to/program",
		usage: "program to launch",
		set: func(o *Options, value string, exists func(string) bool) error {
			path := trimQuotes(value)
			if path == "" {
				return usageErrorf("--exec: path is empty")
			}
			if !exists(path) {
				return usageErrorf("--exec: %s does not exist", path)
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return usageErrorf("--exec: %v", err)
			}
			o.Exec = abs
			return nil
		},
	},
	{
		long: "params", short: "p", value: "\"-fullscreen\"",
		usage: "arguments passed to the program",
		set: func(o *Options, value string, _ func(string) bool) error {
			o.Params = value
			return nil
		},
	},
	{
		long: "controller", short: "c", value: "N",
		usage: "controller index to watch (default: all controllers)",
		set: func(o *Options, value string, _ func(string) bool) error {
			n, err := strconv.Atoi(trimQuotes(value))
			if err != nil || n < 0 {
				o.Selector = types.AllControllers()
				return nil
			}
			o.Selector = types.ControllerAt(n)
			return nil
		},
	},
	{
		long: "time", short: "t", value: "MS",
		usage: "milliseconds the buttons must be held (default: 0)",
		set: func(o *Options, value string, _ func(string) bool) error {
			ms, err := strconv.ParseInt(trimQuotes(value), 10, 64)
			if err != nil {
				return usageErrorf("--time: %q is not a number of milliseconds", value)
			}
			if ms < 0 {
				return usageErrorf("--time: must not be negative")
			}
			o.Hold = time.Duration(ms) * time.Millisecond
			return nil
		},
	},
	{
		long: "config", value: "FILE",
		usage: "configuration file (TOML or YAML)",
		set: func(o *Options, value string, _ func(string) bool) error {
			o.ConfigPath = trimQuotes(value)
			return nil
		},
	},
}

// lookup は名前に対応するオプションを返す
func lookup(name string) (*option, bool) {
	for i := range options {
		if name == options[i].long || (options[i].short != "" && name == options[i].short) {
			return &options[i], true
		}
	}
	return nil, false
}

// segment は1つのオプションに渡された値
// words[0] は "=" の後ろの文字列、以降はシェルで分かれた後続の単語
type segment struct {
	opt   *option
	words []string
}

func (s segment) value() string {
	if s.opt.long != "params" {
		return strings.TrimSpace(strings.Join(s.words, " "))
	}

	// 後続の単語は分割し直したときに元の単語に戻るようクォートする
	parts := make([]string, 0, len(s.words))
	if first := strings.TrimSpace(s.words[0]); first != "" {
		parts = append(parts, first)
	}
	for _, w := range s.words[1:] {
		parts = append(parts, quote(w))
	}
	return strings.Join(parts, " ")
}

// Parse は引数を解析して検証する。exists は実行ファイルの存在確認に使う
// 使い方を表示すべき場合は ErrUsage に該当するエラーを返す
func Parse(argv []string, exists func(string) bool) (Options, error) {
	opts := Options{Selector: types.AllControllers()}

	if len(argv) == 0 {
		return opts, &UsageError{}
	}

	var (
		segments []segment
		current  *segment
	)
	for _, word := range argv {
		if word == RestoreFlag {
			opts.RestoreDisplay = true
			continue
		}

		if strings.HasPrefix(word, "--") {
			name, value, hasValue := strings.Cut(strings.TrimPrefix(word, "--"), "=")
			name = strings.TrimSpace(name)
			inParams := current != nil && current.opt.long == "params"
			if hasValue {
				if opt, ok := lookup(name); ok {
					segments = append(segments, segment{opt: opt, words: []string{value}})
					current = &segments[len(segments)-1]
					continue
				}
			} else if !inParams {
				// params の後ろでは対象に渡す引数として扱う
				switch name {
				case RestoreFlag:
					opts.RestoreDisplay = true
					continue
				case "help", "h":
					return opts, &UsageError{}
				}
			}

			// 認識できないオプションは値ごと無視する。params の中では引数の一部として扱う
			if !inParams {
				current = nil
				continue
			}
		}

		if current != nil {
			current.words = append(current.words, word)
		}
	}

	seen := make(map[string]bool)
	for _, s := range segments {
		if err := s.opt.set(&opts, s.value(), exists); err != nil {
			return opts, err
		}
		seen[s.opt.long] = true
	}

	for _, opt := range options {
		if opt.required && !seen[opt.long] {
			return opts, usageErrorf("--%s is required", opt.long)
		}
	}

	return opts, nil
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// quote は空白や引用符を含む単語をシングルクォートで囲む
func quote(w string) string {
	if w == "" {
		return "''"
	}
	if !strings.ContainsAny(w, " \t\n\"'\\#") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
