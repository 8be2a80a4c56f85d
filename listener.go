// listener.go: channel-name to bridge-factory mapping
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"github.com/google/uuid"
)

// ListenerCallback produces a fresh ChannelBridge for every instance the
// host creates under one registered channel name.
//
// The plugin registers one ListenerCallback per configured channel name at
// Initialize; the mapping lives for the whole host session.
type ListenerCallback struct {
	plugin      *Plugin
	channelName string
	logger      Logger
}

// newListenerCallback binds a channel name to the owning plugin.
func newListenerCallback(plugin *Plugin, channelName string) *ListenerCallback {
	return &ListenerCallback{
		plugin:      plugin,
		channelName: channelName,
		logger:      plugin.logger.With("channel", channelName),
	}
}

// ChannelName returns the registered channel name.
func (lc *ListenerCallback) ChannelName() string {
	return lc.channelName
}

// OnNewChannelConnection implements ChannelListenerCallback. Every instance
// is accepted; there is no admission policy over channel instances. The
// returned bridge starts its accept loop immediately and is the callback
// object for all further per-instance notifications.
func (lc *ListenerCallback) OnNewChannelConnection(channel VirtualChannel) (bool, ChannelCallback, error) {
	if channel == nil {
		lc.logger.Error("host reported a channel instance without a channel handle")
		return false, nil, NewNilChannelError(lc.channelName)
	}

	ref, err := NewChannelRef(channel)
	if err != nil {
		return false, nil, err
	}

	bridge, err := lc.plugin.newBridge(lc.channelName, ref, uuid.NewString())
	if err != nil {
		lc.logger.Error("bridge creation rejected", "error", err)
		return false, nil, err
	}

	lc.logger.Debug("channel instance accepted", "pipe_address", bridge.PipeAddress())
	return true, bridge, nil
}
