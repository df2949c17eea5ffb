package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"snapdesk/internal/annotate"
	"snapdesk/internal/logger"
	"snapdesk/internal/storage"
)

// EnvPrefix 环境变量覆盖的前缀, 例如 SNAPDESK_STORAGE_FORMAT
const EnvPrefix = "SNAPDESK"

// Actions 可绑定热键的动作
var Actions = []string{"fullscreen", "region", "window", "quick", "cancel"}

// Hotkey 快捷键配置
type Hotkey struct {
	Modifiers []string `mapstructure:"modifiers" json:"modifiers"` // ctrl, alt, shift, win
	Key       string   `mapstructure:"key" json:"key"`             // a-z, 0-9, f1-f12, space, escape ...
}

// Hotkeys 所有动作的快捷键
type Hotkeys struct {
	Fullscreen Hotkey `mapstructure:"fullscreen" json:"fullscreen"`
	Region     Hotkey `mapstructure:"region" json:"region"`
	Window     Hotkey `mapstructure:"window" json:"window"`
	Quick      Hotkey `mapstructure:"quick" json:"quick"`
	Cancel     Hotkey `mapstructure:"cancel" json:"cancel"`
}

// Storage 存储配置
type Storage struct {
	Directory     string `mapstructure:"directory" json:"directory"`
	Format        string `mapstructure:"format" json:"format"`   // png, jpg, bmp, gif
	Quality       int    `mapstructure:"quality" json:"quality"` // jpg 质量 1-100
	RetentionDays int    `mapstructure:"retention_days" json:"retention_days"`
}

// Behavior 行为配置
type Behavior struct {
	EditAfterCapture bool `mapstructure:"edit_after_capture" json:"edit_after_capture"`
	CopyToClipboard  bool `mapstructure:"copy_to_clipboard" json:"copy_to_clipboard"`
	ShowNotification bool `mapstructure:"show_notification" json:"show_notification"`
}

// Capture 截图引擎和会话配置
type Capture struct {
	TimeoutMs int    `mapstructure:"timeout_ms" json:"timeout_ms"`
	StuckMs   int    `mapstructure:"stuck_ms" json:"stuck_ms"`
	AppTitle  string `mapstructure:"app_title" json:"app_title"`
}

// Editor 编辑器默认值
type Editor struct {
	Tool        string `mapstructure:"tool" json:"tool"`
	Color       string `mapstructure:"color" json:"color"`
	PenWidth    int    `mapstructure:"pen_width" json:"pen_width"`
	MosaicBlock int    `mapstructure:"mosaic_block" json:"mosaic_block"`
	FontSize    int    `mapstructure:"font_size" json:"font_size"`
	MaxHistory  int    `mapstructure:"max_history" json:"max_history"`
}

// Log 日志配置
type Log struct {
	Level  string `mapstructure:"level" json:"level"`
	Pretty bool   `mapstructure:"pretty" json:"pretty"`
	File   string `mapstructure:"file" json:"file"`
}

// Config 主配置结构
type Config struct {
	Hotkeys  Hotkeys  `mapstructure:"hotkeys" json:"hotkeys"`
	Storage  Storage  `mapstructure:"storage" json:"storage"`
	Behavior Behavior `mapstructure:"behavior" json:"behavior"`
	Capture  Capture  `mapstructure:"capture" json:"capture"`
	Editor   Editor   `mapstructure:"editor" json:"editor"`
	Log      Log      `mapstructure:"log" json:"log"`

	path string
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Hotkeys: Hotkeys{
			Region:     Hotkey{Modifiers: []string{"alt"}, Key: "1"},
			Fullscreen: Hotkey{Modifiers: []string{"alt"}, Key: "2"},
			Window:     Hotkey{Modifiers: []string{"alt"}, Key: "3"},
			Quick:      Hotkey{Modifiers: []string{"alt"}, Key: "4"},
			Cancel:     Hotkey{Modifiers: []string{"ctrl", "alt"}, Key: "q"},
		},
		Storage: Storage{
			Directory:     filepath.Join(home, "Pictures", "SnapDesk"),
			Format:        "png",
			Quality:       90,
			RetentionDays: 0,
		},
		Behavior: Behavior{
			EditAfterCapture: true,
			CopyToClipboard:  true,
			ShowNotification: true,
		},
		Capture: Capture{
			TimeoutMs: 5000,
			StuckMs:   10000,
			AppTitle:  "SnapDesk",
		},
		Editor: Editor{
			Tool:        "pen",
			Color:       "#ff0000",
			PenWidth:    3,
			MosaicBlock: 10,
			FontSize:    20,
			MaxHistory:  50,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// DefaultPath Windows 上是 %APPDATA%\snapdesk\config.json,
// 其他平台是 ~/.config/snapdesk/config.json
func DefaultPath() string {
	var configDir string

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			homeDir, _ := os.UserHomeDir()
			configDir = filepath.Join(homeDir, "AppData", "Roaming")
		}
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "snapdesk", "config.json")
}

// LoadDotEnv 加载可执行文件旁边的 .env (如果有), 便携版可以把 SNAPDESK_* 放在那里
func LoadDotEnv() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	envPath := filepath.Join(filepath.Dir(exe), ".env")
	if err := loadDotEnv(envPath); err != nil {
		log := logger.WithComponent("config")
		log.Warn().Err(err).Str("path", envPath).Msg("ignoring .env")
	}
}

// loadDotEnv 加载 path, 文件不存在不算错误
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load 加载配置 (path 为空时用 DefaultPath), 依次叠加默认值, JSON 文件和 SNAPDESK_* 环境变量.
// 文件不存在时按默认值创建. 返回的配置总是可用, err 表示文件读取或解析失败.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := setDefaults(v, DefaultConfig()); err != nil {
		return nil, err
	}

	var readErr error
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.path = path
		_ = cfg.Save()
	} else if err := v.ReadInConfig(); err != nil {
		readErr = fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		cfg = DefaultConfig()
		readErr = errors.Join(readErr, fmt.Errorf("decode config: %w", err))
	}
	cfg.path = path
	cfg.Validate()
	return cfg, readErr
}

// setDefaults 注册默认值的每个叶子节点, 文件里没有的键也能被环境变量覆盖
func setDefaults(v *viper.Viper, defaults *Config) error {
	data, err := json.Marshal(defaults)
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]interface{}); ok {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

// Validate 验证并修正越界的配置值
func (c *Config) Validate() {
	defaults := DefaultConfig()

	if c.Storage.Quality < 1 || c.Storage.Quality > 100 {
		c.Storage.Quality = defaults.Storage.Quality
	}
	if f, err := storage.ParseFormat(c.Storage.Format); err != nil {
		c.Storage.Format = defaults.Storage.Format
	} else {
		c.Storage.Format = string(f)
	}
	if c.Storage.Directory == "" || strings.Contains(c.Storage.Directory, "..") {
		c.Storage.Directory = defaults.Storage.Directory
	}
	if c.Storage.RetentionDays < 0 {
		c.Storage.RetentionDays = 0
	}

	c.Hotkeys.Fullscreen = validHotkey(c.Hotkeys.Fullscreen, defaults.Hotkeys.Fullscreen)
	c.Hotkeys.Region = validHotkey(c.Hotkeys.Region, defaults.Hotkeys.Region)
	c.Hotkeys.Window = validHotkey(c.Hotkeys.Window, defaults.Hotkeys.Window)
	c.Hotkeys.Quick = validHotkey(c.Hotkeys.Quick, defaults.Hotkeys.Quick)
	c.Hotkeys.Cancel = validHotkey(c.Hotkeys.Cancel, defaults.Hotkeys.Cancel)

	if c.Capture.TimeoutMs <= 0 {
		c.Capture.TimeoutMs = defaults.Capture.TimeoutMs
	}
	if c.Capture.StuckMs <= 0 {
		c.Capture.StuckMs = defaults.Capture.StuckMs
	}
	if strings.TrimSpace(c.Capture.AppTitle) == "" {
		c.Capture.AppTitle = defaults.Capture.AppTitle
	}

	if _, err := annotate.ParseTool(c.Editor.Tool); err != nil {
		c.Editor.Tool = defaults.Editor.Tool
	}
	if _, err := annotate.ParseColor(c.Editor.Color); err != nil {
		c.Editor.Color = defaults.Editor.Color
	}
	if c.Editor.PenWidth < 1 || c.Editor.PenWidth > 64 {
		c.Editor.PenWidth = defaults.Editor.PenWidth
	}
	if c.Editor.MosaicBlock < 1 || c.Editor.MosaicBlock > 256 {
		c.Editor.MosaicBlock = defaults.Editor.MosaicBlock
	}
	if c.Editor.FontSize < 6 || c.Editor.FontSize > 200 {
		c.Editor.FontSize = defaults.Editor.FontSize
	}
	if c.Editor.MaxHistory < 0 {
		c.Editor.MaxHistory = defaults.Editor.MaxHistory
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
		c.Log.Level = strings.ToLower(c.Log.Level)
	default:
		c.Log.Level = defaults.Log.Level
	}
}

var validMods = map[string]string{
	"ctrl": "ctrl", "control": "ctrl",
	"alt": "alt", "option": "alt",
	"shift": "shift",
	"win": "win", "super": "win", "cmd": "win", "command": "win",
}

func validHotkey(h, fallback Hotkey) Hotkey {
	key := strings.ToLower(strings.TrimSpace(h.Key))
	if key == "" {
		return fallback
	}
	var mods []string
	seen := map[string]bool{}
	for _, m := range h.Modifiers {
		if canon, ok := validMods[strings.ToLower(strings.TrimSpace(m))]; ok && !seen[canon] {
			seen[canon] = true
			mods = append(mods, canon)
		}
	}
	if len(mods) == 0 {
		return fallback
	}
	return Hotkey{Modifiers: mods, Key: key}
}

// Path 配置文件路径
func (c *Config) Path() string { return c.path }

// Save 保存配置为缩进 JSON
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ByAction 按动作名返回所有快捷键
func (h Hotkeys) ByAction() map[string]Hotkey {
	return map[string]Hotkey{
		"fullscreen": h.Fullscreen,
		"region":     h.Region,
		"window":     h.Window,
		"quick":      h.Quick,
		"cancel":     h.Cancel,
	}
}

// Hotkey 返回 action 的快捷键
func (c *Config) Hotkey(action string) (Hotkey, bool) {
	h, ok := c.Hotkeys.ByAction()[action]
	return h, ok
}

// SetHotkey 设置快捷键并保存
func (c *Config) SetHotkey(action string, h Hotkey) error {
	h = validHotkey(h, Hotkey{})
	if h.Key == "" {
		return fmt.Errorf("invalid hotkey for %s", action)
	}
	switch action {
	case "fullscreen":
		c.Hotkeys.Fullscreen = h
	case "region":
		c.Hotkeys.Region = h
	case "window":
		c.Hotkeys.Window = h
	case "quick":
		c.Hotkeys.Quick = h
	case "cancel":
		c.Hotkeys.Cancel = h
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return c.Save()
}

// String 快捷键的字符串表示, 如 "ctrl+alt+a"
func (h Hotkey) String() string {
	parts := append(append([]string(nil), h.Modifiers...), h.Key)
	return strings.Join(parts, "+")
}

// ParseHotkey 解析 "ctrl+shift+a", 最后一段是按键
func ParseHotkey(s string) (Hotkey, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return Hotkey{}, fmt.Errorf("hotkey %q needs at least one modifier", s)
	}
	h := validHotkey(Hotkey{Modifiers: parts[:len(parts)-1], Key: parts[len(parts)-1]}, Hotkey{})
	if h.Key == "" || len(h.Modifiers) != len(parts)-1 {
		return Hotkey{}, fmt.Errorf("invalid hotkey %q", s)
	}
	return h, nil
}

// EnsureStorageDir 展开 ~ 并确保存储目录存在
func (c *Config) EnsureStorageDir() error {
	c.Storage.Directory = storage.ExpandHome(c.Storage.Directory)
	return os.MkdirAll(c.Storage.Directory, 0755)
}
