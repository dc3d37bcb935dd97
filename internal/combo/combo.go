// Package combo はボタンの組み合わせ（コンボ）の判定と長押しタイマーを提供する
package combo

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/char5742/quitbit/internal/consts"
)

var (
	ErrEmptyCombo       = errors.New("combo must contain at least one button")
	ErrButtonOutOfRange = errors.New("button index out of range")
	ErrInvalidButton    = errors.New("invalid button index")
)

// Separator はコンボ文字列のボタン区切り
const Separator = "+"

// Combo は同時に押されるべきボタンインデックスの集合
// 重複なし・昇順・空でないことが保証される
type Combo struct {
	indices []int
	mask    uint32
}

// New はボタンインデックスからコンボを作成する
func New(indices ...int) (Combo, error) {
	if len(indices) == 0 {
		return Combo{}, ErrEmptyCombo
	}

	var mask uint32
	for _, i := range indices {
		if i < 0 || i >= consts.MaxButtons {
			return Combo{}, fmt.Errorf("%w: %d (must be 0-%d)", ErrButtonOutOfRange, i, consts.MaxButtons-1)
		}
		mask |= 1 << uint(i)
	}

	return Combo{indices: normalize(indices), mask: mask}, nil
}

// Parse は "0+1+2" 形式の文字列からコンボを作成する
func Parse(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, ErrEmptyCombo
	}

	parts := strings.Split(s, Separator)
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Combo{}, fmt.Errorf("%w: %q", ErrInvalidButton, part)
		}
		indices = append(indices, i)
	}

	return New(indices...)
}

// Indices はボタンインデックスを昇順で返す
func (c Combo) Indices() []int {
	return append([]int(nil), c.indices...)
}

// Mask はコンボをビットマスクで返す
func (c Combo) Mask() uint32 {
	return c.mask
}

// Len はコンボに含まれるボタン数を返す
func (c Combo) Len() int {
	return len(c.indices)
}

// IsZero はコンボが未設定かどうかを返す
func (c Combo) IsZero() bool {
	return len(c.indices) == 0
}

func (c Combo) String() string {
	parts := make([]string, len(c.indices))
	for i, index := range c.indices {
		parts[i] = strconv.Itoa(index)
	}
	return strings.Join(parts, Separator)
}

// MatchesMask は押下状態のビットマスクがコンボと完全に一致するかを返す
func (c Combo) MatchesMask(mask uint32) bool {
	return !c.IsZero() && mask == c.mask
}

// Matches は押されているボタン集合がコンボと完全に一致するかを返す
// 部分集合や余分なボタンを含む集合は一致しない
func Matches(pressed []int, target Combo) bool {
	if target.IsZero() {
		return false
	}

	set := normalize(pressed)
	if len(set) != len(target.indices) {
		return false
	}
	for i := range set {
		if set[i] != target.indices[i] {
			return false
		}
	}
	return true
}

// normalize は重複を除いて昇順に並べたコピーを返す
func normalize(indices []int) []int {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	out := sorted[:0]
	for _, v := range sorted {
		if len(out) > 0 && v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
