package features

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/char5742/quitbit/internal/types"
)

// ControllerLister は接続中のコントローラを列挙する
type ControllerLister interface {
	Controllers() ([]types.Controller, error)
}

// ControllerSource はコントローラの列挙と状態の読み取りを行う
type ControllerSource interface {
	ControllerLister
	Read(c types.Controller) (types.Reading, error)
}

// EvdevSource は evdev デバイスからコントローラの状態を読み取る
// 開いたデバイスは切断されるかエラーになるまで使い回す
type EvdevSource struct {
	lister   ControllerLister
	open     func(path string) (Gamepad, error)
	gamepads map[types.Controller]Gamepad
	logger   zerolog.Logger
	mutex    sync.Mutex
}

// NewEvdevSource は列挙元を指定してソースを作成する
func NewEvdevSource(lister ControllerLister, logger zerolog.Logger) *EvdevSource {
	return &EvdevSource{
		lister:   lister,
		open:     OpenGamepad,
		gamepads: make(map[types.Controller]Gamepad),
		logger:   logger,
	}
}

// Controllers は接続中のコントローラを返し、切断されたデバイスを閉じる
func (s *EvdevSource) Controllers() ([]types.Controller, error) {
	controllers, err := s.lister.Controllers()
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	present := make(map[types.Controller]bool, len(controllers))
	for _, c := range controllers {
		present[c] = true
	}
	for c, gp := range s.gamepads {
		if !present[c] {
			s.logger.Debug().Str("controller", c.Name).Msg("切断されたコントローラを閉じます")
			gp.Close()
			delete(s.gamepads, c)
		}
	}

	return controllers, nil
}

// Gamepad は指定されたコントローラを開いて返す
func (s *EvdevSource) Gamepad(c types.Controller) (Gamepad, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.gamepad(c)
}

func (s *EvdevSource) gamepad(c types.Controller) (Gamepad, error) {
	if gp, ok := s.gamepads[c]; ok {
		return gp, nil
	}

	gp, err := s.open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDevice, c.Name, err)
	}
	s.gamepads[c] = gp
	return gp, nil
}

// Read はコントローラの現在の状態を読み取る
func (s *EvdevSource) Read(c types.Controller) (types.Reading, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	gp, err := s.gamepad(c)
	if err != nil {
		return types.IdleReading(), err
	}

	reading, err := gp.Read()
	if err != nil {
		// 次回のポーリングで開き直す
		gp.Close()
		delete(s.gamepads, c)
		return types.IdleReading(), err
	}
	return reading, nil
}

// Close は開いているデバイスをすべて閉じる
func (s *EvdevSource) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for c, gp := range s.gamepads {
		gp.Close()
		delete(s.gamepads, c)
	}
	return nil
}

// Sampler は1ティックごとに対象コントローラの状態を取得する
type Sampler struct {
	source   ControllerSource
	selector types.Selector
	pinned   string
	logger   zerolog.Logger
}

// NewSampler はサンプラーを作成する
func NewSampler(source ControllerSource, selector types.Selector, logger zerolog.Logger) *Sampler {
	return &Sampler{
		source:   source,
		selector: selector,
		logger:   logger,
	}
}

// Sample は対象コントローラごとの状態を返す
// 取得に失敗したデバイスは何も押されていない状態として扱う
func (s *Sampler) Sample() []types.Reading {
	controllers, err := s.source.Controllers()
	if err != nil {
		s.logger.Debug().Err(err).Msg("コントローラの列挙に失敗しました")
		if s.selector.All {
			return nil
		}
		return []types.Reading{types.IdleReading()}
	}

	if s.selector.All {
		readings := make([]types.Reading, 0, len(controllers))
		for _, c := range controllers {
			readings = append(readings, s.read(c))
		}
		return readings
	}

	// 最初に見つかった時点の名前で固定し、他のデバイスの抜き差しで対象が変わらないようにする
	if s.pinned == "" && s.selector.Index >= 0 && s.selector.Index < len(controllers) {
		s.pinned = controllers[s.selector.Index].Name
		s.logger.Info().
			Int("index", s.selector.Index).
			Str("controller", s.pinned).
			Msg("監視対象のコントローラを固定しました")
	}

	for _, c := range controllers {
		if c.Name == s.pinned {
			return []types.Reading{s.read(c)}
		}
	}
	return []types.Reading{types.IdleReading()}
}

// Pinned は固定されたコントローラ名を返す。未固定なら空文字
func (s *Sampler) Pinned() string {
	return s.pinned
}

func (s *Sampler) read(c types.Controller) types.Reading {
	reading, err := s.source.Read(c)
	if err != nil {
		s.logger.Debug().Err(err).Str("controller", c.Name).Msg("コントローラの読み取りに失敗しました")
		return types.IdleReading()
	}
	return reading
}
