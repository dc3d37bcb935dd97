package combo

import (
	"fmt"
	"strings"

	"github.com/char5742/quitbit/internal/types"
)

// Policy は複数コントローラの状態をどう判定するかを表す
type Policy int

const (
	// PolicyUnion は全コントローラのボタンを合成してから判定する
	PolicyUnion Policy = iota
	// PolicyAny はいずれか1台のコントローラ単独で一致すれば成立とする
	PolicyAny
)

// ParsePolicy は文字列から判定ポリシーを返す
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "union":
		return PolicyUnion, nil
	case "any":
		return PolicyAny, nil
	default:
		return PolicyUnion, fmt.Errorf("unknown match policy %q (expected union or any)", s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyAny:
		return "any"
	default:
		return "union"
	}
}

// Evaluate は現在のコントローラ状態がコンボに一致するかを返す
func (p Policy) Evaluate(target Combo, readings []types.Reading) bool {
	if len(readings) == 0 {
		return false
	}

	if p == PolicyAny {
		for _, r := range readings {
			if target.MatchesMask(r.Buttons) {
				return true
			}
		}
		return false
	}

	union := types.IdleReading()
	for _, r := range readings {
		union = union.Union(r)
	}
	return target.MatchesMask(union.Buttons)
}
