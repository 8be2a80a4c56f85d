// testing_helpers_test.go: shared fakes and helpers for rdpipe tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testChannel is a host-side VirtualChannel fake recording every write.
type testChannel struct {
	mu       sync.Mutex
	writes   [][]byte
	failWith error
}

func newTestChannel() *testChannel {
	return &testChannel{}
}

func (c *testChannel) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.writes = append(c.writes, append([]byte{}, p...))
	return nil
}

// Writes returns a copy of all recorded write payloads, one per Write call.
func (c *testChannel) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	for i, w := range c.writes {
		out[i] = append([]byte{}, w...)
	}
	return out
}

// Payload returns all recorded bytes concatenated in write order.
func (c *testChannel) Payload() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []byte
	for _, w := range c.writes {
		out = append(out, w...)
	}
	return out
}

func (c *testChannel) setFail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}

// fakeChannelManager is a host-side ChannelManager fake recording listener
// registrations.
type fakeChannelManager struct {
	mu         sync.Mutex
	callbacks  map[string]ChannelListenerCallback
	rejectName string
}

func newFakeChannelManager() *fakeChannelManager {
	return &fakeChannelManager{callbacks: make(map[string]ChannelListenerCallback)}
}

func (m *fakeChannelManager) CreateListener(name string, cb ChannelListenerCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == m.rejectName {
		return fmt.Errorf("listener name rejected: %s", name)
	}
	if _, dup := m.callbacks[name]; dup {
		return fmt.Errorf("duplicate listener: %s", name)
	}
	m.callbacks[name] = cb
	return nil
}

func (m *fakeChannelManager) callback(name string) ChannelListenerCallback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callbacks[name]
}

func (m *fakeChannelManager) registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.callbacks)
}

// newTestBridge drives the full host path: plugin init, listener
// registration, one channel instance. The plugin is closed on test cleanup.
func newTestBridge(t *testing.T, logger Logger, channel VirtualChannel) (*Plugin, *ChannelBridge) {
	t.Helper()

	plugin, err := NewPlugin(DefaultConfig, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plugin.Close() })

	mgr := newFakeChannelManager()
	require.NoError(t, plugin.Initialize(mgr))

	accept, cb, err := mgr.callback(DefaultChannelName).OnNewChannelConnection(channel)
	require.NoError(t, err)
	require.True(t, accept)

	bridge, ok := cb.(*ChannelBridge)
	require.True(t, ok, "listener callback should hand back a bridge")
	return plugin, bridge
}

// dialBridge connects to a bridge's pipe endpoint, retrying while the
// accept loop (re)creates it.
func dialBridge(t *testing.T, address string) net.Conn {
	t.Helper()

	var lastErr error
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := DialPipe(address)
		if err == nil {
			return conn
		}
		lastErr = err
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("could not connect to pipe %s: %v", address, lastErr)
	return nil
}

// waitConnected blocks until the bridge has installed the pipe writer.
func waitConnected(t *testing.T, bridge *ChannelBridge) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bridge.Stats().Connected
	}, 5*time.Second, 10*time.Millisecond, "bridge never observed the pipe client")
}

// waitDisconnected blocks until the bridge has cleared the pipe writer.
func waitDisconnected(t *testing.T, bridge *ChannelBridge) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !bridge.Stats().Connected
	}, 5*time.Second, 10*time.Millisecond, "bridge never observed the disconnect")
}

// readExactly reads exactly n bytes from the pipe client side.
func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, n)
	total := 0
	for total < n {
		read, err := conn.Read(buf[total:])
		require.NoError(t, err)
		total += read
	}
	return buf
}
