package features

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/char5742/quitbit/internal/consts"
	"github.com/char5742/quitbit/internal/types"
)

// ErrNoDevice は指定されたコントローラが接続されていないことを表す
var ErrNoDevice = errors.New("controller not connected")

// ScanControllers は現在接続されているコントローラを名前順で返す
// 列挙順がそのままコントローラのインデックスになる
func ScanControllers() ([]types.Controller, error) {
	return scanControllers(consts.DevInputByIDDir)
}

func scanControllers(dir string) ([]types.Controller, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// by-id が無いのはジョイスティックが1台も無い状態
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var controllers []types.Controller
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), consts.JoystickSuffix) {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		realPath, err := os.Readlink(fullPath)
		if err != nil {
			continue
		}

		// 相対リンクはリンクのあるディレクトリ基準で解決する
		if !filepath.IsAbs(realPath) {
			realPath = filepath.Join(dir, realPath)
		}

		controllers = append(controllers, types.Controller{
			Name: entry.Name(),
			Path: filepath.Clean(realPath),
		})
	}

	sort.Slice(controllers, func(i, j int) bool {
		return controllers[i].Name < controllers[j].Name
	})
	return controllers, nil
}

// ControllerMonitor はコントローラの接続状態を監視する
// イベントはポーリングループから非ブロッキングで取り出すため、ゴルーチンを持たない
type ControllerMonitor struct {
	watcher     *fsnotify.Watcher
	dir         string
	parent      string
	logger      zerolog.Logger
	controllers []types.Controller
	dirty       bool
	watchingDir bool
	mutex       sync.Mutex
}

// NewControllerMonitor はモニターを作成する
// fsnotify が使えない場合でも失敗せず、毎回スキャンする動作になる
func NewControllerMonitor(logger zerolog.Logger) *ControllerMonitor {
	return newControllerMonitor(consts.DevInputByIDDir, consts.DevInputDir, logger)
}

func newControllerMonitor(dir, parent string, logger zerolog.Logger) *ControllerMonitor {
	cm := &ControllerMonitor{
		dir:    dir,
		parent: parent,
		logger: logger,
		dirty:  true,
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug().Err(err).Msg("ファイル監視を作成できないため毎回スキャンします")
		return cm
	}
	cm.watcher = watcher

	// by-id は最初のジョイスティック接続時に作られるため親ディレクトリも監視する
	if err := watcher.Add(parent); err != nil {
		logger.Debug().Err(err).Str("dir", parent).Msg("ディレクトリの監視に失敗しました")
	}
	cm.watchDir()

	return cm
}

// watchDir は by-id ディレクトリが存在すれば監視対象に加える
func (cm *ControllerMonitor) watchDir() {
	if cm.watcher == nil || cm.watchingDir {
		return
	}
	if _, err := os.Stat(cm.dir); err != nil {
		return
	}
	if err := cm.watcher.Add(cm.dir); err != nil {
		cm.logger.Debug().Err(err).Str("dir", cm.dir).Msg("ディレクトリの監視に失敗しました")
		return
	}
	cm.watchingDir = true
}

// pending は溜まっているファイルシステムイベントをすべて取り出す
func (cm *ControllerMonitor) pending() {
	for {
		select {
		case event, ok := <-cm.watcher.Events:
			if !ok {
				cm.watcher = nil
				cm.dirty = true
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			cm.dirty = true
			if event.Name == cm.dir {
				// by-id 自体の作成・削除
				cm.watchingDir = false
				cm.watchDir()
			}
		case err, ok := <-cm.watcher.Errors:
			if !ok {
				cm.watcher = nil
				cm.dirty = true
				return
			}
			// イベントの取りこぼしがあり得るので再スキャンする
			cm.logger.Debug().Err(err).Msg("ファイルシステム監視エラー")
			cm.dirty = true
		default:
			return
		}
	}
}

// Controllers は現在接続されているコントローラを名前順で返す
func (cm *ControllerMonitor) Controllers() ([]types.Controller, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.watcher != nil {
		cm.pending()
	}
	if cm.watcher == nil {
		cm.dirty = true
	}

	if cm.dirty {
		controllers, err := scanControllers(cm.dir)
		if err != nil {
			return nil, err
		}
		if len(controllers) != len(cm.controllers) {
			cm.logger.Debug().Int("count", len(controllers)).Msg("コントローラ一覧を更新しました")
		}
		cm.controllers = controllers
		cm.dirty = false
	}

	return append([]types.Controller(nil), cm.controllers...), nil
}

// Close は監視を終了する
func (cm *ControllerMonitor) Close() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.watcher == nil {
		return nil
	}
	err := cm.watcher.Close()
	cm.watcher = nil
	return err
}
