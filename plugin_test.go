// plugin_test.go: tests for plugin root orchestration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPluginDefaults(t *testing.T) {
	plugin, err := NewPlugin(Config{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	cfg := plugin.Config()
	assert.Equal(t, []string{DefaultChannelName}, cfg.Channels)
	assert.Equal(t, DefaultPipePrefix, cfg.PipePrefix)
	assert.Equal(t, DefaultReadBufferSize, cfg.ReadBufferSize)
}

func TestNewPluginRejectsInvalidConfig(t *testing.T) {
	_, err := NewPlugin(Config{Channels: []string{"A", "A"}}, nil)
	require.Error(t, err)

	_, err = NewPlugin(Config{ReadBufferSize: -1}, nil)
	require.Error(t, err)
}

func TestPluginInitializeWithoutManager(t *testing.T) {
	logger := NewTestLogger()
	plugin, err := NewPlugin(DefaultConfig, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	err = plugin.Initialize(nil)
	require.Error(t, err)
	assert.True(t, logger.HasMessage("ERROR", "no channel manager given when initializing"))
}

func TestPluginInitializeRegistersAllChannels(t *testing.T) {
	cfg := DefaultConfig
	cfg.Channels = []string{"ChannelA", "ChannelB"}
	plugin, err := NewPlugin(cfg, NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	mgr := newFakeChannelManager()
	require.NoError(t, plugin.Initialize(mgr))
	assert.Equal(t, 2, mgr.registered())
	assert.NotNil(t, mgr.callback("ChannelA"))
	assert.NotNil(t, mgr.callback("ChannelB"))
}

func TestPluginInitializeSurfacesRejectedName(t *testing.T) {
	cfg := DefaultConfig
	cfg.Channels = []string{"Good", "Rejected"}
	plugin, err := NewPlugin(cfg, NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	mgr := newFakeChannelManager()
	mgr.rejectName = "Rejected"
	err = plugin.Initialize(mgr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Listener registration failed")
}

func TestPluginLifecycleNotifications(t *testing.T) {
	logger := NewTestLogger()
	plugin, err := NewPlugin(DefaultConfig, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	require.NoError(t, plugin.Connected())
	require.NoError(t, plugin.Disconnected(12))
	assert.True(t, logger.HasMessage("INFO", "host connection established"))
	assert.True(t, logger.HasMessage("INFO", "host connection dropped"))
}

func TestPluginTerminatedClosesBridges(t *testing.T) {
	channel := newTestChannel()
	plugin, bridge := newTestBridge(t, NewTestLogger(), channel)

	conn := dialBridge(t, bridge.PipeAddress())
	defer func() { _ = conn.Close() }()
	waitConnected(t, bridge)

	require.NoError(t, plugin.Terminated())
	require.NoError(t, plugin.Close()) // idempotent

	// The torn-down bridge rejects further inbound data.
	err := bridge.OnDataReceived([]byte("late"))
	require.Error(t, err)
	assert.True(t, IsPipeUnavailable(err))
	assert.Empty(t, plugin.Stats())
}

func TestPluginApplyConfigHotSettings(t *testing.T) {
	logger := NewTestLogger()
	plugin, err := NewPlugin(DefaultConfig, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	next := plugin.Config()
	next.ReadBufferSize = 8192
	require.NoError(t, plugin.ApplyConfig(next))
	assert.Equal(t, 8192, plugin.Config().ReadBufferSize)
}

func TestPluginApplyConfigKeepsRegistrationsStable(t *testing.T) {
	logger := NewTestLogger()
	plugin, err := NewPlugin(DefaultConfig, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	next := Config{Channels: []string{"Other"}, ReadBufferSize: 2048}
	require.NoError(t, plugin.ApplyConfig(next))

	cfg := plugin.Config()
	assert.Equal(t, []string{DefaultChannelName}, cfg.Channels, "registered names stay fixed for the session")
	assert.Equal(t, 2048, cfg.ReadBufferSize)
	assert.True(t, logger.HasMessage("WARN", "channel or pipe address settings changed, effective on next initialization"))
}

func TestPluginApplyConfigRejectsInvalid(t *testing.T) {
	plugin, err := NewPlugin(DefaultConfig, NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	err = plugin.ApplyConfig(Config{Channels: []string{""}})
	require.Error(t, err)
}

// TestPluginEndToEndScenario walks the full host interaction: initialize,
// instance creation, duplex relay, local reconnect, teardown.
func TestPluginEndToEndScenario(t *testing.T) {
	logger := NewTestLogger()
	plugin, err := NewPlugin(DefaultConfig, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	mgr := newFakeChannelManager()
	require.NoError(t, plugin.Initialize(mgr))

	channel := newTestChannel()
	accept, cb, err := mgr.callback(DefaultChannelName).OnNewChannelConnection(channel)
	require.NoError(t, err)
	require.True(t, accept)
	bridge := cb.(*ChannelBridge)

	// Client A: duplex exchange.
	connA := dialBridge(t, bridge.PipeAddress())
	waitConnected(t, bridge)
	_, err = connA.Write([]byte("hello"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return string(channel.Payload()) == "hello"
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, cb.OnDataReceived([]byte("world")))
	assert.Equal(t, "world", string(readExactly(t, connA, 5)))

	// Client B resumes on the same address with no residual data.
	require.NoError(t, connA.Close())
	waitDisconnected(t, bridge)
	connB := dialBridge(t, bridge.PipeAddress())
	defer func() { _ = connB.Close() }()
	waitConnected(t, bridge)
	_, err = connB.Write([]byte("again"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return string(channel.Payload()) == "helloagain"
	}, 5*time.Second, 10*time.Millisecond)

	stats := plugin.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, DefaultChannelName, stats[0].ChannelName)

	require.NoError(t, cb.OnClose())
	assert.Empty(t, plugin.Stats())
}
