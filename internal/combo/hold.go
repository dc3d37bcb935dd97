package combo

import "time"

// HoldTimer はコンボが押され続けている時間を計測する
// 一致しないティックが1回でもあれば経過時間は0に戻る
type HoldTimer struct {
	threshold time.Duration
	elapsed   time.Duration
	matching  bool
	fired     bool
}

// NewHoldTimer は閾値を指定してタイマーを作成する。閾値0は最初の一致で発火する
func NewHoldTimer(threshold time.Duration) *HoldTimer {
	if threshold < 0 {
		threshold = 0
	}
	return &HoldTimer{threshold: threshold}
}

// Observe は1ティック分の判定結果と前回ティックからの実経過時間を反映する
// 押下を初めて検出したティックは経過時間に含めず、0から数え始める
// このティックで発火した場合のみ true を返す
func (h *HoldTimer) Observe(matching bool, delta time.Duration) bool {
	if h.fired {
		return false
	}

	if !matching {
		h.matching = false
		h.elapsed = 0
		return false
	}

	if delta < 0 || !h.matching {
		delta = 0
	}
	h.matching = true
	h.elapsed += delta

	if h.elapsed >= h.threshold {
		h.fired = true
		return true
	}
	return false
}

// Elapsed は現在の連続一致時間を返す
func (h *HoldTimer) Elapsed() time.Duration {
	return h.elapsed
}

// Matching は直前のティックで一致していたかを返す
func (h *HoldTimer) Matching() bool {
	return h.matching
}

// Fired は発火済みかを返す
func (h *HoldTimer) Fired() bool {
	return h.fired
}

// Remaining は発火までの残り時間を返す
func (h *HoldTimer) Remaining() time.Duration {
	if h.elapsed >= h.threshold {
		return 0
	}
	return h.threshold - h.elapsed
}
