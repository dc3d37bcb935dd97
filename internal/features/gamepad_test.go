package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/char5742/quitbit/internal/consts"
)

func setBit(bits []byte, bit int) {
	bits[bit/8] |= 1 << uint(bit%8)
}

func TestButtonCodes_JoystickOrder(t *testing.T) {
	keyBits := make([]byte, consts.KeyBitsSize)
	setBit(keyBits, consts.BtnMisc+1)    // BTN_1
	setBit(keyBits, consts.BtnGamepad)   // BTN_SOUTH
	setBit(keyBits, consts.BtnGamepad+1) // BTN_EAST
	setBit(keyBits, consts.BtnJoystick)  // BTN_TRIGGER
	setBit(keyBits, 0x2c0)               // BTN_TRIGGER_HAPPY1
	setBit(keyBits, 0x30)                // KEY_B は対象外

	codes := buttonCodes(keyBits)

	assert.Equal(t, []uint16{
		consts.BtnJoystick,
		consts.BtnGamepad,
		consts.BtnGamepad + 1,
		0x2c0,
		consts.BtnMisc + 1,
	}, codes)
}

func TestButtonMask(t *testing.T) {
	codes := []uint16{consts.BtnGamepad, consts.BtnGamepad + 1, consts.BtnGamepad + 3}

	state := make([]byte, consts.KeyBitsSize)
	setBit(state, consts.BtnGamepad+1)
	setBit(state, consts.BtnGamepad+3)
	setBit(state, consts.BtnGamepad+2) // 対応表にないコード

	assert.Equal(t, uint32(0b110), buttonMask(codes, state))
}

func TestButtonMask_IgnoresIndicesBeyondWidth(t *testing.T) {
	var codes []uint16
	state := make([]byte, consts.KeyBitsSize)
	for i := 0; i < consts.MaxButtons+4; i++ {
		code := uint16(0x2c0 + i)
		codes = append(codes, code)
		setBit(state, int(code))
	}

	assert.Equal(t, ^uint32(0), buttonMask(codes, state))
}

func TestHatToPOV(t *testing.T) {
	tests := []struct {
		x, y int32
		want uint16
	}{
		{0, 0, consts.POVCentered},
		{0, -1, consts.POVUp},
		{1, -1, consts.POVUpRight},
		{1, 0, consts.POVRight},
		{1, 1, consts.POVDownRight},
		{0, 1, consts.POVDown},
		{-1, 1, consts.POVDownLeft},
		{-1, 0, consts.POVLeft},
		{-1, -1, consts.POVUpLeft},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, hatToPOV(tt.x, tt.y), "x=%d y=%d", tt.x, tt.y)
	}
}

func TestTestBit_OutOfRange(t *testing.T) {
	assert.False(t, testBit(nil, consts.AbsHat0X))
	assert.False(t, testBit([]byte{0xff}, 8))
	assert.False(t, testBit([]byte{0xff}, -1))
	assert.True(t, testBit([]byte{0x00, 0x01}, 8))
}
