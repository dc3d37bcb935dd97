package types

import (
	"math/bits"
	"sort"

	"github.com/char5742/quitbit/internal/consts"
)

// Controller は列挙されたコントローラを表す構造体
type Controller struct {
	Name string // /dev/input/by-id 上のリンク名
	Path string // 実デバイスのパス
}

// Reading は1回のポーリングで得たコントローラの状態
// 毎回新しい値として返され、共有されない
type Reading struct {
	Buttons uint32 // ビットiが立っていればボタンiが押されている
	POV     uint16 // 方向キーの角度（100分の1度）または consts.POVCentered
}

// IdleReading は何も押されていない状態を返す
func IdleReading() Reading {
	return Reading{POV: consts.POVCentered}
}

// IsPressed はボタンiが押されているかを返す
func (r Reading) IsPressed(i int) bool {
	if i < 0 || i >= consts.MaxButtons {
		return false
	}
	return r.Buttons&(1<<uint(i)) != 0
}

// Pressed は押されているボタンのインデックスを昇順で返す
func (r Reading) Pressed() []int {
	pressed := make([]int, 0, bits.OnesCount32(r.Buttons))
	for i := 0; i < consts.MaxButtons; i++ {
		if r.IsPressed(i) {
			pressed = append(pressed, i)
		}
	}
	sort.Ints(pressed)
	return pressed
}

// Union は2つの状態のボタンを合成する。POVは中央でない方を優先する
func (r Reading) Union(other Reading) Reading {
	pov := r.POV
	if pov == consts.POVCentered {
		pov = other.POV
	}
	return Reading{Buttons: r.Buttons | other.Buttons, POV: pov}
}

// AbsInfo はEVIOCGABSで取得する絶対座標軸の情報（struct input_absinfo）
type AbsInfo struct {
	Value      int32 // 現在値
	Minimum    int32 // 最小値
	Maximum    int32 // 最大値
	Fuzz       int32 // ファジー値
	Flat       int32 // フラット値
	Resolution int32 // 分解能
}
