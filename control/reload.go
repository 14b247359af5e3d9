// control/reload.go
// Author: momentics <momentics@gmail.com>
//
// Hot reload of the configuration file. Hooks run synchronously on the
// watcher goroutine in registration order.

package control

import (
	"fmt"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader fans a reloaded configuration out to registered hooks.
type Reloader struct {
	mu    sync.Mutex
	hooks []func(*Config)
	log   *zap.Logger
}

// NewReloader creates a reloader logging to log (nil: no logging).
func NewReloader(log *zap.Logger) *Reloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reloader{log: log.Named("reload")}
}

// OnReload registers a hook called with every valid reloaded config.
func (r *Reloader) OnReload(fn func(*Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Apply invokes all hooks with cfg.
func (r *Reloader) Apply(cfg *Config) {
	r.mu.Lock()
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
}

// Watch reads path once and then re-reads it on every change, applying
// configurations that decode and validate. Invalid edits are logged and
// skipped. Watching lasts for the life of the process.
func (r *Reloader) Watch(path string) error {
	if path == "" {
		return fmt.Errorf("watch config: empty path")
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			r.log.Warn("config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		r.log.Info("config reloaded", zap.String("file", e.Name), zap.Stringer("op", e.Op))
		r.Apply(cfg)
	})
	v.WatchConfig()
	return nil
}
