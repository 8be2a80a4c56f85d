// metrics.go: per-bridge relay counters
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// BridgeStats is a point-in-time snapshot of one bridge's relay activity.
type BridgeStats struct {
	ChannelName string `json:"channel_name"`
	InstanceID  string `json:"instance_id"`
	PipeAddress string `json:"pipe_address"`
	Connected   bool   `json:"connected"`

	// BytesToChannel counts pipe-to-channel relay volume, BytesToPipe the
	// opposite direction.
	BytesToChannel int64 `json:"bytes_to_channel"`
	BytesToPipe    int64 `json:"bytes_to_pipe"`

	Connects    int64 `json:"connects"`
	Disconnects int64 `json:"disconnects"`

	// LastActivity is the time of the most recent relayed byte in either
	// direction; zero when nothing has been relayed yet.
	LastActivity time.Time `json:"last_activity"`
}

// bridgeMetrics holds the live counters behind BridgeStats. Updated from
// both the accept loop and the host's data path, so everything is atomic.
type bridgeMetrics struct {
	bytesToChannel atomic.Int64
	bytesToPipe    atomic.Int64
	connects       atomic.Int64
	disconnects    atomic.Int64
	lastActivity   atomic.Int64 // unix nanoseconds
}

func (m *bridgeMetrics) addToChannel(n int64) {
	m.bytesToChannel.Add(n)
	m.lastActivity.Store(timecache.CachedTimeNano())
}

func (m *bridgeMetrics) addToPipe(n int64) {
	m.bytesToPipe.Add(n)
	m.lastActivity.Store(timecache.CachedTimeNano())
}

func (m *bridgeMetrics) connected() {
	m.connects.Add(1)
}

func (m *bridgeMetrics) disconnected() {
	m.disconnects.Add(1)
}

func (m *bridgeMetrics) snapshot(channelName, instanceID, pipeAddr string, connected bool) BridgeStats {
	stats := BridgeStats{
		ChannelName:    channelName,
		InstanceID:     instanceID,
		PipeAddress:    pipeAddr,
		Connected:      connected,
		BytesToChannel: m.bytesToChannel.Load(),
		BytesToPipe:    m.bytesToPipe.Load(),
		Connects:       m.connects.Load(),
		Disconnects:    m.disconnects.Load(),
	}
	if nanos := m.lastActivity.Load(); nanos != 0 {
		stats.LastActivity = time.Unix(0, nanos)
	}
	return stats
}
