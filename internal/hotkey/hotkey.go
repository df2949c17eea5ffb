// Package hotkey 把全局快捷键绑定到截图动作
package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"

	"snapdesk/internal/config"
	"snapdesk/internal/logger"
)

// Trigger 接收被按下的动作名
type Trigger func(action string)

// registration 管理器用到的 *hotkey.Hotkey 方法
type registration interface {
	Register() error
	Unregister() error
	Keydown() <-chan hotkey.Event
}

type binding struct {
	action string
	combo  string
	hk     registration
	stop   chan struct{}
}

// Manager 管理当前的全局快捷键, Register 会替换整组绑定
type Manager struct {
	mu        sync.Mutex
	newHotkey func([]hotkey.Modifier, hotkey.Key) registration
	active    []*binding
	log       zerolog.Logger
}

// NewManager 返回没有任何绑定的管理器
func NewManager() *Manager {
	return &Manager{
		newHotkey: func(mods []hotkey.Modifier, key hotkey.Key) registration {
			return hotkey.New(mods, key)
		},
		log: logger.WithComponent("hotkey"),
	}
}

// ParseModifiers 把修饰键名称转换为平台修饰键
func ParseModifiers(mods []string) ([]hotkey.Modifier, error) {
	var result []hotkey.Modifier
	for _, mod := range mods {
		m, ok := modifiers[strings.ToLower(mod)]
		if !ok {
			return nil, fmt.Errorf("unsupported modifier %q", mod)
		}
		result = append(result, m)
	}
	return result, nil
}

// ParseKey 把按键名转换为平台键码
func ParseKey(key string) (hotkey.Key, error) {
	k, ok := keys[strings.ToLower(key)]
	if !ok {
		return 0, fmt.Errorf("unsupported key %q", key)
	}
	return k, nil
}

// Register 先注销之前的所有绑定, 再逐个注册 bindings. 失败的绑定记录后跳过,
// 不影响其他绑定. 两个动作使用同一组合键时拒绝.
func (m *Manager) Register(bindings map[string]config.Hotkey, trigger Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unregisterLocked()

	actions := make([]string, 0, len(bindings))
	for action := range bindings {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	var errs []error
	owner := map[string]string{}
	for _, action := range actions {
		h := bindings[action]
		combo := h.String()
		if prev, taken := owner[combo]; taken {
			errs = append(errs, fmt.Errorf("%s: %s already bound to %s", action, combo, prev))
			continue
		}
		mods, err := ParseModifiers(h.Modifiers)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
			continue
		}
		key, err := ParseKey(h.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
			continue
		}

		hk := m.newHotkey(mods, key)
		if err := hk.Register(); err != nil {
			errs = append(errs, fmt.Errorf("%s: cannot register %s: %w", action, combo, err))
			continue
		}
		owner[combo] = action

		b := &binding{action: action, combo: combo, hk: hk, stop: make(chan struct{})}
		m.active = append(m.active, b)
		go listen(b, trigger)
		m.log.Info().Str("action", action).Str("combo", combo).Msg("hotkey registered")
	}
	return errors.Join(errs...)
}

func listen(b *binding, trigger Trigger) {
	keydown := b.hk.Keydown()
	for {
		select {
		case <-b.stop:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			trigger(b.action)
		}
	}
}

// Unregister 注销所有绑定
func (m *Manager) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterLocked()
}

func (m *Manager) unregisterLocked() {
	for _, b := range m.active {
		close(b.stop)
		if err := b.hk.Unregister(); err != nil {
			m.log.Warn().Err(err).Str("combo", b.combo).Msg("unregister failed")
		}
	}
	m.active = nil
}

// Bound 返回当前生效的 动作 -> 组合键
func (m *Manager) Bound() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.active))
	for _, b := range m.active {
		out[b.action] = b.combo
	}
	return out
}

// Run 在保留主线程的情况下运行 fn, 部分平台需要
func Run(fn func()) {
	mainthread.Init(fn)
}

// SupportedModifiers 支持的修饰键名称
func SupportedModifiers() []string {
	return []string{"ctrl", "alt", "shift", "win"}
}

// SupportedKeys 支持的按键名称
func SupportedKeys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
