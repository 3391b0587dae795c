// Package config loads the window manager configuration from a TOML
// file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// Config is the decoded configuration file.
type Config struct {
	Appearance  Appearance   `toml:"appearance"`
	Programs    Programs     `toml:"programs"`
	Workspaces  Workspaces   `toml:"workspaces"`
	Keybinds    []Keybind    `toml:"keybinds"`
	Mousebinds  []Mousebind  `toml:"mousebinds"`
	WindowRules []WindowRule `toml:"window_rules"`
	Focus       Focus        `toml:"focus"`
	API         API          `toml:"api"`
}

// Appearance controls gaps, borders and the built-in status bar.
type Appearance struct {
	Padding          int    `toml:"padding"`
	BorderWidth      int    `toml:"border_width"`
	BorderColor      string `toml:"border_color"`
	FocusColor       string `toml:"focus_color"`
	UrgentColor      string `toml:"urgent_color"`
	StatusBarEnabled bool   `toml:"status_bar_enabled"`
	StatusBarHeight  int    `toml:"status_bar_height"`
	StatusBarFont    string `toml:"status_bar_font"`
	StatusBarBg      string `toml:"status_bar_bg"`
	StatusBarFg      string `toml:"status_bar_fg"`
}

// Programs are the commands behind the terminal, browser and launcher
// actions, plus an optional program run once at startup.
type Programs struct {
	Terminal  string `toml:"terminal"`
	Browser   string `toml:"browser"`
	Launcher  string `toml:"launcher"`
	Autostart string `toml:"autostart"`
}

// Workspaces configures the per-monitor workspace set.
type Workspaces struct {
	Count int      `toml:"count"`
	Names []string `toml:"names"`
}

// Name returns the display name of workspace i.
func (w Workspaces) Name(i int) string {
	if i < len(w.Names) && w.Names[i] != "" {
		return w.Names[i]
	}
	return strconv.Itoa(i + 1)
}

// Keybind maps a key chord to an action.
type Keybind struct {
	Mod       string `toml:"mod"`
	Key       string `toml:"key"`
	Action    string `toml:"action"`
	Command   string `toml:"command"`
	Workspace int    `toml:"workspace"`
}

// Mousebind maps a modifier and pointer button to a drag action.
type Mousebind struct {
	Mod    string `toml:"mod"`
	Button int    `toml:"button"`
	Action string `toml:"action"`
}

// Geometry is a rectangle given in a window rule.
type Geometry struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// WindowRule matches windows by class, instance, title, type and
// transientness, and overrides where and how they are placed. Nil
// pointer fields leave the corresponding property untouched.
type WindowRule struct {
	ClassPattern    string    `toml:"class_pattern"`
	InstancePattern string    `toml:"instance_pattern"`
	TitlePattern    string    `toml:"title_pattern"`
	Type            string    `toml:"type"`
	Transient       *bool     `toml:"transient"`
	Floating        *bool     `toml:"floating"`
	Workspace       *int      `toml:"workspace"`
	WorkspaceName   string    `toml:"workspace_name"`
	Monitor         *int      `toml:"monitor"`
	MonitorName     string    `toml:"monitor_name"`
	Fullscreen      *bool     `toml:"fullscreen"`
	Above           *bool     `toml:"above"`
	Below           *bool     `toml:"below"`
	Sticky          *bool     `toml:"sticky"`
	SkipTaskbar     *bool     `toml:"skip_taskbar"`
	SkipPager       *bool     `toml:"skip_pager"`
	Geometry        *Geometry `toml:"geometry"`
	Center          *bool     `toml:"center"`
}

// Focus holds focus related options.
type Focus struct {
	WarpCursorOnMonitorChange bool `toml:"warp_cursor_on_monitor_change"`
	// KillTimeoutMs is how long a closed window may take to go away
	// before it is killed. It also bounds ping replies.
	KillTimeoutMs int `toml:"kill_timeout_ms"`
}

// API configures the optional introspection server.
type API struct {
	Listen string `toml:"listen"`
}

// Actions understood in keybinds.
const (
	ActionSpawn             = "spawn"
	ActionKill              = "kill"
	ActionSwitchWorkspace   = "switch_workspace"
	ActionToggleWorkspace   = "toggle_workspace"
	ActionMoveToWorkspace   = "move_to_workspace"
	ActionFocusMonitor      = "focus_monitor_next"
	ActionFocusMonitorPrev  = "focus_monitor_prev"
	ActionMoveToMonitor     = "move_to_monitor_next"
	ActionMoveToMonitorPrev = "move_to_monitor_prev"
	ActionFocusNext         = "focus_next"
	ActionFocusPrev         = "focus_prev"
	ActionFullscreen        = "toggle_fullscreen"
	ActionToggleFloating    = "toggle_floating"
	ActionTerminal          = "terminal"
	ActionBrowser           = "browser"
	ActionLauncher          = "launcher"
	ActionQuit              = "quit"

	ActionDragWindow     = "drag_window"
	ActionResizeFloating = "resize_floating"
)

var keyActions = map[string]bool{
	ActionSpawn: true, ActionKill: true, ActionSwitchWorkspace: true,
	ActionToggleWorkspace: true, ActionMoveToWorkspace: true,
	ActionFocusMonitor: true, ActionFocusMonitorPrev: true,
	ActionMoveToMonitor: true, ActionMoveToMonitorPrev: true,
	ActionFocusNext: true, ActionFocusPrev: true, ActionFullscreen: true,
	ActionToggleFloating: true, ActionTerminal: true, ActionBrowser: true,
	ActionLauncher: true, ActionQuit: true,
}

const (
	defaultKillTimeoutMs = 3000
	minKillTimeoutMs     = 1000
	maxKillTimeoutMs     = 5000
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{
		Appearance: Appearance{
			Padding:         10,
			BorderWidth:     2,
			BorderColor:     "#444444",
			FocusColor:      "#5294e2",
			UrgentColor:     "#e25252",
			StatusBarHeight: 18,
			StatusBarFont:   "6x13",
			StatusBarBg:     "#222222",
			StatusBarFg:     "#dddddd",
		},
		Programs: Programs{
			Terminal: "x-terminal-emulator",
			Browser:  "x-www-browser",
			Launcher: "dmenu_run",
		},
		Workspaces: Workspaces{Count: 10},
		Focus:      Focus{KillTimeoutMs: defaultKillTimeoutMs},
	}
	c.Keybinds = defaultKeybinds()
	c.Mousebinds = []Mousebind{
		{Mod: "Mod4", Button: 1, Action: ActionDragWindow},
		{Mod: "Mod4", Button: 3, Action: ActionResizeFloating},
	}
	return c
}

func defaultKeybinds() []Keybind {
	kb := []Keybind{
		{Mod: "Mod4", Key: "Return", Action: ActionTerminal},
		{Mod: "Mod4", Key: "d", Action: ActionLauncher},
		{Mod: "Mod4", Key: "b", Action: ActionBrowser},
		{Mod: "Mod4+Shift", Key: "q", Action: ActionKill},
		{Mod: "Mod4", Key: "Tab", Action: ActionToggleWorkspace},
		{Mod: "Mod4", Key: "j", Action: ActionFocusNext},
		{Mod: "Mod4", Key: "k", Action: ActionFocusPrev},
		{Mod: "Mod4", Key: "period", Action: ActionFocusMonitor},
		{Mod: "Mod4", Key: "comma", Action: ActionFocusMonitorPrev},
		{Mod: "Mod4+Shift", Key: "period", Action: ActionMoveToMonitor},
		{Mod: "Mod4+Shift", Key: "comma", Action: ActionMoveToMonitorPrev},
		{Mod: "Mod4", Key: "f", Action: ActionFullscreen},
		{Mod: "Mod4+Shift", Key: "space", Action: ActionToggleFloating},
		{Mod: "Mod4+Shift", Key: "e", Action: ActionQuit},
	}
	for i := 0; i < 10; i++ {
		key := strconv.Itoa((i + 1) % 10)
		kb = append(kb,
			Keybind{Mod: "Mod4", Key: key, Action: ActionSwitchWorkspace, Workspace: i},
			Keybind{Mod: "Mod4+Shift", Key: key, Action: ActionMoveToWorkspace, Workspace: i},
		)
	}
	return kb
}

// DefaultPath returns $XDG_CONFIG_HOME/lwm/config.toml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "lwm", "config.toml")
}

// Load reads the configuration at path. If path is empty the default
// location is used, and a missing file there yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			log.WithField("path", path).Info("no config file, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	// Keybinds and mousebinds from the file replace the defaults rather
	// than being appended to them.
	cfg.Keybinds = nil
	cfg.Mousebinds = nil
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.WithField("key", key.String()).Warn("unknown config key")
	}
	if !md.IsDefined("keybinds") {
		cfg.Keybinds = defaultKeybinds()
	}
	if !md.IsDefined("mousebinds") {
		cfg.Mousebinds = Default().Mousebinds
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	a := &c.Appearance
	if a.Padding < 0 {
		return fmt.Errorf("appearance.padding must not be negative")
	}
	if a.BorderWidth < 0 {
		return fmt.Errorf("appearance.border_width must not be negative")
	}
	for _, col := range []string{a.BorderColor, a.FocusColor, a.UrgentColor, a.StatusBarBg, a.StatusBarFg} {
		if _, err := ParseColor(col); err != nil {
			return err
		}
	}
	if c.Workspaces.Count < 0 {
		return fmt.Errorf("workspaces.count must not be negative")
	}
	switch {
	case c.Focus.KillTimeoutMs == 0:
		c.Focus.KillTimeoutMs = defaultKillTimeoutMs
	case c.Focus.KillTimeoutMs < minKillTimeoutMs:
		c.Focus.KillTimeoutMs = minKillTimeoutMs
	case c.Focus.KillTimeoutMs > maxKillTimeoutMs:
		c.Focus.KillTimeoutMs = maxKillTimeoutMs
	}
	for i, kb := range c.Keybinds {
		if !keyActions[kb.Action] {
			return fmt.Errorf("keybinds[%d]: unknown action %q", i, kb.Action)
		}
		if kb.Key == "" {
			return fmt.Errorf("keybinds[%d]: missing key", i)
		}
		if _, err := ParseModifiers(kb.Mod); err != nil {
			return fmt.Errorf("keybinds[%d]: %w", i, err)
		}
		if kb.Action == ActionSpawn && kb.Command == "" {
			return fmt.Errorf("keybinds[%d]: spawn needs a command", i)
		}
	}
	for i, mb := range c.Mousebinds {
		if mb.Action != ActionDragWindow && mb.Action != ActionResizeFloating {
			return fmt.Errorf("mousebinds[%d]: unknown action %q", i, mb.Action)
		}
		if mb.Button < 1 || mb.Button > 5 {
			return fmt.Errorf("mousebinds[%d]: button %d out of range", i, mb.Button)
		}
		if _, err := ParseModifiers(mb.Mod); err != nil {
			return fmt.Errorf("mousebinds[%d]: %w", i, err)
		}
	}
	return nil
}

// ParseColor parses "#rrggbb" into a pixel value.
func ParseColor(s string) (uint32, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return 0, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad color %q", s)
	}
	return uint32(v), nil
}

// MustColor is ParseColor for values already checked by Load.
func MustColor(s string) uint32 {
	v, err := ParseColor(s)
	if err != nil {
		return 0
	}
	return v
}
