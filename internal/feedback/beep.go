// Package feedback はコンボ成立時の通知音を鳴らす
package feedback

import "github.com/gen2brain/beeep"

var beep = beeep.Beep

// Beep は標準の周波数と長さで通知音を鳴らす
func Beep() error {
	return beep(beeep.DefaultFreq, beeep.DefaultDuration)
}
