package features

import (
	"bytes"
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/char5742/quitbit/internal/consts"
	"github.com/char5742/quitbit/internal/types"
)

// ゲームパッドの状態を読み取るインターフェース
type Gamepad interface {
	Read() (types.Reading, error)
	ButtonCount() int
	Name() string
	Close() error
}

type evdevGamepad struct {
	file   *os.File
	name   string
	codes  []uint16 // ボタンインデックス順のキーコード
	hasHat bool
	state  []byte
}

// デバイスのパスを指定してゲームパッドを開く
func OpenGamepad(path string) (Gamepad, error) {
	// デバイスを読み取り、非ブロッキングモードで開く
	f, err := os.OpenFile(path, syscall.O_RDONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("デバイスファイルを開くのに失敗しました: %w", err)
	}

	keyBits := make([]byte, consts.KeyBitsSize)
	if err := ioctl(f.Fd(), consts.EviocgBit(consts.EvKey, len(keyBits)), unsafe.Pointer(&keyBits[0])); err != nil {
		f.Close()
		return nil, fmt.Errorf("ボタン情報の取得に失敗しました: %w", err)
	}

	absBits := make([]byte, consts.AbsBitsSize)
	if err := ioctl(f.Fd(), consts.EviocgBit(consts.EvAbs, len(absBits)), unsafe.Pointer(&absBits[0])); err != nil {
		// 軸を持たないデバイスもある
		absBits = nil
	}

	return &evdevGamepad{
		file:   f,
		name:   deviceName(f),
		codes:  buttonCodes(keyBits),
		hasHat: testBit(absBits, consts.AbsHat0X) && testBit(absBits, consts.AbsHat0Y),
		state:  make([]byte, consts.KeyBitsSize),
	}, nil
}

func (g *evdevGamepad) Read() (types.Reading, error) {
	if err := ioctl(g.file.Fd(), consts.EviocgKey(len(g.state)), unsafe.Pointer(&g.state[0])); err != nil {
		return types.IdleReading(), fmt.Errorf("ボタン状態の取得に失敗しました: %w", err)
	}

	reading := types.Reading{
		Buttons: buttonMask(g.codes, g.state),
		POV:     consts.POVCentered,
	}
	if !g.hasHat {
		return reading, nil
	}

	var x, y types.AbsInfo
	if err := ioctl(g.file.Fd(), consts.EviocgAbs(consts.AbsHat0X), unsafe.Pointer(&x)); err != nil {
		return types.IdleReading(), fmt.Errorf("方向キーの取得に失敗しました: %w", err)
	}
	if err := ioctl(g.file.Fd(), consts.EviocgAbs(consts.AbsHat0Y), unsafe.Pointer(&y)); err != nil {
		return types.IdleReading(), fmt.Errorf("方向キーの取得に失敗しました: %w", err)
	}
	reading.POV = hatToPOV(x.Value, y.Value)

	return reading, nil
}

func (g *evdevGamepad) Close() error {
	return g.file.Close()
}

func (g *evdevGamepad) ButtonCount() int {
	return len(g.codes)
}

func (g *evdevGamepad) Name() string {
	return g.name
}

func deviceName(f *os.File) string {
	buf := make([]byte, 256)
	if err := ioctl(f.Fd(), consts.EviocgName(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// buttonCodes は対応ボタンのキーコードをジョイスティックインターフェースと同じ順に並べる
// BTN_JOYSTICK 以降が先、BTN_MISC の範囲がその後
func buttonCodes(keyBits []byte) []uint16 {
	var codes []uint16
	for code := consts.BtnJoystick; code <= consts.KeyMax; code++ {
		if testBit(keyBits, code) {
			codes = append(codes, uint16(code))
		}
	}
	for code := consts.BtnMisc; code < consts.BtnJoystick; code++ {
		if testBit(keyBits, code) {
			codes = append(codes, uint16(code))
		}
	}
	return codes
}

// buttonMask は押下中のキーコードをボタンインデックスのビットマスクに変換する
func buttonMask(codes []uint16, state []byte) uint32 {
	var mask uint32
	for i, code := range codes {
		if i >= consts.MaxButtons {
			break
		}
		if testBit(state, int(code)) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// hatToPOV はハットスイッチの値を100分の1度の角度に変換する
// Y軸は負が上
func hatToPOV(x, y int32) uint16 {
	switch {
	case y < 0 && x == 0:
		return consts.POVUp
	case y < 0 && x > 0:
		return consts.POVUpRight
	case y == 0 && x > 0:
		return consts.POVRight
	case y > 0 && x > 0:
		return consts.POVDownRight
	case y > 0 && x == 0:
		return consts.POVDown
	case y > 0 && x < 0:
		return consts.POVDownLeft
	case y == 0 && x < 0:
		return consts.POVLeft
	case y < 0 && x < 0:
		return consts.POVUpLeft
	default:
		return consts.POVCentered
	}
}

func testBit(bits []byte, bit int) bool {
	byteIndex := bit / 8
	if bit < 0 || byteIndex >= len(bits) {
		return false
	}
	return bits[byteIndex]&(1<<uint(bit%8)) != 0
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
