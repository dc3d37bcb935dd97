package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/char5742/quitbit/internal/consts"
)

func TestReading_Union(t *testing.T) {
	a := Reading{Buttons: 0b0010, POV: consts.POVCentered}
	b := Reading{Buttons: 0b0100, POV: consts.POVRight}

	u := a.Union(b)
	assert.Equal(t, uint32(0b0110), u.Buttons)
	assert.Equal(t, consts.POVRight, u.POV)

	// 両方とも方向キーが押されていれば左側を優先
	assert.Equal(t, consts.POVRight, b.Union(Reading{POV: consts.POVUp}).POV)
	assert.Equal(t, IdleReading(), IdleReading().Union(IdleReading()))
}

func TestReading_Pressed(t *testing.T) {
	assert.Empty(t, IdleReading().Pressed())
	assert.Equal(t, []int{0, 2, 31}, Reading{Buttons: 1 | 1<<2 | 1<<31}.Pressed())
	assert.False(t, Reading{Buttons: 1}.IsPressed(-1))
	assert.False(t, Reading{Buttons: 1}.IsPressed(consts.MaxButtons))
}

func TestSelector_String(t *testing.T) {
	assert.Equal(t, "all", AllControllers().String())
	assert.Equal(t, "3", ControllerAt(3).String())
}
