// plugin.go: plugin root orchestration and shared lifecycle
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Plugin is the root object the host drives through its lifecycle
// notifications.
//
// It owns the shared execution context every bridge's background loop runs
// under, registers listeners for the configured channel names at
// Initialize, and tears all live bridges down on Terminated or Close.
// Connected and Disconnected carry no per-instance state, they only log;
// everything per-instance lives in the ChannelBridges.
type Plugin struct {
	logger   Logger
	settings atomic.Pointer[Config]

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	bridges     map[string]*ChannelBridge // keyed by instance id
	initialized bool
	closed      bool
}

// NewPlugin creates a plugin root with the given configuration. The config
// is normalized and validated; a nil-safe logger default applies.
func NewPlugin(config Config, logger Logger) (*Plugin, error) {
	if logger == nil {
		logger = DefaultLogger()
	}

	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Plugin{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		bridges: make(map[string]*ChannelBridge),
	}
	p.settings.Store(&config)
	return p, nil
}

// Initialize registers a listener for every configured channel name with
// the host's channel manager. A missing manager is a contract violation
// that aborts plugin start-up; a rejected name surfaces as a registration
// error, never silently.
func (p *Plugin) Initialize(mgr ChannelManager) error {
	if mgr == nil {
		p.logger.Error("no channel manager given when initializing")
		return NewMissingChannelManagerError()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return NewPluginClosedError()
	}
	p.initialized = true
	p.mu.Unlock()

	cfg := p.settings.Load()
	for _, name := range cfg.Channels {
		if err := mgr.CreateListener(name, newListenerCallback(p, name)); err != nil {
			return NewListenerRegistrationError(name, err)
		}
		p.logger.Info("channel listener registered", "channel", name)
	}
	return nil
}

// Connected handles the host's connect notification.
func (p *Plugin) Connected() error {
	p.logger.Info("host connection established")
	return nil
}

// Disconnected handles the host's disconnect notification.
func (p *Plugin) Disconnected(code uint32) error {
	p.logger.Info("host connection dropped", "code", code)
	return nil
}

// Terminated handles the host's terminate notification. The host is going
// away, so every live bridge is torn down.
func (p *Plugin) Terminated() error {
	p.logger.Info("host session terminated")
	return p.Close()
}

// Close tears down all live bridges and stops the shared lifecycle.
// Idempotent.
func (p *Plugin) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	live := make([]*ChannelBridge, 0, len(p.bridges))
	for _, b := range p.bridges {
		live = append(live, b)
	}
	p.mu.Unlock()

	p.cancel()
	for _, b := range live {
		if err := b.OnClose(); err != nil {
			p.logger.Warn("bridge close failed", "channel", b.ChannelName(), "error", err)
		}
	}

	p.logger.Info("plugin closed", "bridges", len(live))
	return nil
}

// ApplyConfig hot-applies a new configuration.
//
// Only ReadBufferSize takes effect at runtime (picked up by each bridge's
// next pipe connection). Channel registrations and the pipe prefix are
// fixed for the host session; changes to them are logged and deferred to
// the next Initialize.
func (p *Plugin) ApplyConfig(config Config) error {
	config.Normalize()
	if err := config.Validate(); err != nil {
		return err
	}

	current := p.settings.Load()
	if !equalStrings(current.Channels, config.Channels) || current.PipePrefix != config.PipePrefix {
		p.logger.Warn("channel or pipe address settings changed, effective on next initialization",
			"channels", config.Channels,
			"pipe_prefix", config.PipePrefix)
		// Keep the registered names and addresses stable for live bridges.
		config.Channels = current.Channels
		config.PipePrefix = current.PipePrefix
	}

	p.settings.Store(&config)
	p.logger.Info("configuration applied", "read_buffer_size", config.ReadBufferSize)
	return nil
}

// Config returns the currently applied configuration.
func (p *Plugin) Config() Config {
	return *p.settings.Load()
}

// Stats returns a snapshot of every live bridge's relay counters.
func (p *Plugin) Stats() []BridgeStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := make([]BridgeStats, 0, len(p.bridges))
	for _, b := range p.bridges {
		stats = append(stats, b.Stats())
	}
	return stats
}

// newBridge constructs, registers and starts a bridge for one channel
// instance.
func (p *Plugin) newBridge(channelName string, ref *ChannelRef, instanceID string) (*ChannelBridge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, NewPluginClosedError()
	}

	bridge := newChannelBridge(p.ctx, channelName, instanceID, ref, &p.settings, p.logger, func() {
		p.mu.Lock()
		delete(p.bridges, instanceID)
		p.mu.Unlock()
	})
	p.bridges[instanceID] = bridge
	bridge.start()
	return bridge, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
