// Package rules loads a game logic generation: the client schema it declares
// and the Lua hooks that run for it.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
	"github.com/cory-johannsen/hysbakstryd/internal/scripting"
)

// Hook names looked up in the rules scripts.
const (
	HookGreeting = "greeting"
	HookOnTick   = "on_tick"
)

// Manifest is the YAML description of a rules generation.
//
// Precondition: Version must be non-empty after loading.
type Manifest struct {
	Version    string         `yaml:"version"`
	Greeting   string         `yaml:"greeting"`
	ScriptDir  string         `yaml:"script_dir"`
	Attributes map[string]any `yaml:"attributes"`
}

// Rules is one loaded generation. It implements session.Hooks.
type Rules struct {
	manifest Manifest
	engine   *scripting.Engine
	logger   *zap.Logger
}

// Load reads the manifest at path and loads its scripts into a fresh engine.
// A relative script_dir is resolved against the manifest's directory.
//
// Precondition: logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a ready Rules or a non-nil error; no engine is leaked on error.
func Load(path string, instLimit int, logger *zap.Logger) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing rules manifest %s: %w", path, err)
	}
	if m.ScriptDir != "" && !filepath.IsAbs(m.ScriptDir) {
		m.ScriptDir = filepath.Join(filepath.Dir(path), m.ScriptDir)
	}
	return New(m, instLimit, logger)
}

// New builds Rules from an in-memory manifest.
//
// Postcondition: Returns a ready Rules or a non-nil error; no engine is leaked on error.
func New(m Manifest, instLimit int, logger *zap.Logger) (*Rules, error) {
	if strings.TrimSpace(m.Version) == "" {
		return nil, fmt.Errorf("rules manifest: version must not be empty")
	}
	schema := session.Schema{Version: m.Version, Attributes: m.Attributes}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("rules %s: %w", m.Version, err)
	}

	logger = logger.With(zap.String("rules", m.Version))
	engine := scripting.NewEngine(instLimit, logger)
	if m.ScriptDir != "" {
		n, err := engine.LoadDir(m.ScriptDir)
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("rules %s: %w", m.Version, err)
		}
		logger.Info("rules scripts loaded", zap.String("dir", m.ScriptDir), zap.Int("files", n))
	}

	return &Rules{manifest: m, engine: engine, logger: logger}, nil
}

// Version returns the generation's version tag.
func (r *Rules) Version() string { return r.manifest.Version }

// Schema returns the client schema the generation declares.
func (r *Rules) Schema() session.Schema {
	return session.Schema{Version: r.manifest.Version, Attributes: r.manifest.Attributes}
}

// Bind connects the scripts' engine.broadcast and engine.schedule to reg.
// Events scheduled by scripts call the named hook of this generation; once it
// is closed they do nothing.
func (r *Rules) Bind(reg *session.Registry) {
	r.engine.Broadcast = func(msgType, text string) {
		reg.Broadcast(msgType, text, "")
	}
	r.engine.Schedule = func(delay int, hook string) {
		reg.ScheduleAt(reg.CurrentTick()+uint64(delay), func(tick uint64) {
			_, _ = r.engine.CallHook(hook, lua.LNumber(tick))
		})
	}
}

// Greeting returns the script's greeting(username) result when it is a
// non-empty string, else the manifest greeting with {name} substituted.
func (r *Rules) Greeting(username string) string {
	ret, _ := r.engine.CallHook(HookGreeting, lua.LString(username))
	if s, ok := ret.(lua.LString); ok && s != "" {
		return string(s)
	}
	return strings.ReplaceAll(r.manifest.Greeting, "{name}", username)
}

// OnTick calls the script's on_tick(tick) hook.
func (r *Rules) OnTick(tick uint64) {
	_, _ = r.engine.CallHook(HookOnTick, lua.LNumber(tick))
}

// Close releases the script engine.
func (r *Rules) Close() {
	r.engine.Close()
}
