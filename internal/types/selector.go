package types

import "fmt"

// Selector は監視対象のコントローラを表す
// All が真なら接続中の全コントローラ、偽なら Index 番目のコントローラ
type Selector struct {
	All   bool
	Index int
}

// AllControllers は全コントローラを対象とするセレクタを返す
func AllControllers() Selector {
	return Selector{All: true}
}

// ControllerAt は特定のコントローラを対象とするセレクタを返す
func ControllerAt(index int) Selector {
	return Selector{Index: index}
}

func (s Selector) String() string {
	if s.All {
		return "all"
	}
	return fmt.Sprintf("%d", s.Index)
}
