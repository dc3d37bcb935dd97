package display

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultCommand は画面モードの操作に使うコマンド
const DefaultCommand = "xrandr"

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Xrandr は xrandr コマンドで画面モードを操作する
type Xrandr struct {
	command string
	run     runFunc
}

// NewXrandr は実行するコマンドを指定して作成する。空なら xrandr
func NewXrandr(command string) *Xrandr {
	if command == "" {
		command = DefaultCommand
	}
	return &Xrandr{command: command, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Modes は接続中の出力のモード一覧を返す
func (x *Xrandr) Modes(ctx context.Context) ([]Mode, error) {
	out, err := x.run(ctx, x.command, "--query")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ParseQuery(bytes.NewReader(out))
}

// Apply は指定されたモードを出力に設定する
func (x *Xrandr) Apply(ctx context.Context, mode Mode) (ApplyResult, error) {
	args := []string{"--output", mode.Output, "--mode", mode.Name}
	if mode.Rate > 0 {
		args = append(args, "--rate", strconv.FormatFloat(mode.Rate, 'f', 2, 64))
	}

	if _, err := x.run(ctx, x.command, args...); err != nil {
		return ApplyFailed, fmt.Errorf("applying %s: %w", mode, err)
	}
	return ApplySuccess, nil
}

// ParseQuery は `xrandr --query` の出力を解析する
// 切断されている出力のモード行は無視する
func ParseQuery(r io.Reader) ([]Mode, error) {
	var (
		modes     []Mode
		output    string
		connected bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		// インデントのない行は Screen 行か出力行
		if line[0] != ' ' && line[0] != '\t' {
			fields := strings.Fields(line)
			if len(fields) >= 2 && fields[0] != "Screen" {
				output = fields[0]
				connected = fields[1] == "connected"
			} else {
				output, connected = "", false
			}
			continue
		}

		if output == "" || !connected {
			continue
		}
		modes = append(modes, parseModeLine(output, strings.Fields(line))...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading xrandr output: %w", err)
	}

	return modes, nil
}

// parseModeLine は "1920x1080  60.00*+  59.94" のような行を解析する
// "*" は現在のモード、"+" は推奨モード。記号が空白で離れている場合は直前のレートに付く
func parseModeLine(output string, fields []string) []Mode {
	if len(fields) < 2 {
		return nil
	}
	name := fields[0]

	var modes []Mode
	for _, field := range fields[1:] {
		rateText := strings.TrimRight(field, "*+")
		marks := field[len(rateText):]

		if rateText == "" {
			if len(modes) > 0 {
				applyMarks(&modes[len(modes)-1], marks)
			}
			continue
		}

		rate, err := strconv.ParseFloat(rateText, 64)
		if err != nil {
			// モード行に続く詳細情報など
			continue
		}

		mode := Mode{Output: output, Name: name, Rate: rate}
		applyMarks(&mode, marks)
		modes = append(modes, mode)
	}
	return modes
}

func applyMarks(mode *Mode, marks string) {
	if strings.Contains(marks, "*") {
		mode.Current = true
	}
	if strings.Contains(marks, "+") {
		mode.Preferred = true
	}
}
