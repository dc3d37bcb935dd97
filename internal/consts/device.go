package consts

// evdev のイベントタイプとコード（input-event-codes.hから）
const (
	EvKey = 0x01 // キーイベント
	EvAbs = 0x03 // 絶対座標イベント

	BtnMisc     = 0x100 // ボタン範囲の先頭
	BtnJoystick = 0x120 // ジョイスティックボタンの先頭
	BtnGamepad  = 0x130 // ゲームパッドボタンの先頭
	KeyMax      = 0x2ff // キーコードの最大値

	AbsHat0X = 0x10 // ハットスイッチのX軸
	AbsHat0Y = 0x11 // ハットスイッチのY軸
	AbsMax   = 0x3f // 絶対座標コードの最大値
)

// ビットマップのサイズ（バイト）
const (
	KeyBitsSize = KeyMax/8 + 1
	AbsBitsSize = AbsMax/8 + 1
)

// MaxButtons はボタンビットマスクの幅。これ以上のインデックスは扱わない
const MaxButtons = 32

// 方向キー（POV）の値。100分の1度単位の角度
const (
	POVUp        uint16 = 0
	POVUpRight   uint16 = 4500
	POVRight     uint16 = 9000
	POVDownRight uint16 = 13500
	POVDown      uint16 = 18000
	POVDownLeft  uint16 = 22500
	POVLeft      uint16 = 27000
	POVUpLeft    uint16 = 31500
	POVCentered  uint16 = 0xFFFF // 中央（入力なし）
)

// デバイスの配置場所
const (
	DevInputDir     = "/dev/input"
	DevInputByIDDir = "/dev/input/by-id"
	JoystickSuffix  = "-event-joystick" // udevが作るジョイスティック用eventデバイスのリンク名
)

// ioctl番号の組み立て（asm-generic/ioctl.hから）
const (
	iocRead      = 2
	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
	evdevType    = 'E'
	absInfoSize  = 24 // struct input_absinfo
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNrShift
}

// EviocgName はデバイス名取得用のIOCTL
func EviocgName(size int) uintptr {
	return ioc(iocRead, evdevType, 0x06, uintptr(size))
}

// EviocgKey は押下中のキー状態取得用のIOCTL
func EviocgKey(size int) uintptr {
	return ioc(iocRead, evdevType, 0x18, uintptr(size))
}

// EviocgBit は対応イベントコードのビットマップ取得用のIOCTL
func EviocgBit(evType int, size int) uintptr {
	return ioc(iocRead, evdevType, 0x20+uintptr(evType), uintptr(size))
}

// EviocgAbs は絶対座標軸の状態取得用のIOCTL
func EviocgAbs(axis int) uintptr {
	return ioc(iocRead, evdevType, 0x40+uintptr(axis), absInfoSize)
}
