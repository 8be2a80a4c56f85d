// channel.go: host channel interfaces and the cross-context channel reference
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

// VirtualChannel is the outbound half of one host channel instance.
//
// The host supplies it when it reports a new channel instance; the bridge
// only stores and invokes it. Its lifetime is owned by the host: the bridge
// must stop using it once the host signals teardown of the instance.
type VirtualChannel interface {
	// Write sends bytes outbound to the remote client session.
	Write(p []byte) error
}

// ChannelManager is the host surface used to register channel listeners.
//
// CreateListener must be called before the host begins delivering
// channel-instance notifications for the given name. A duplicate or
// otherwise rejected name surfaces as an error.
type ChannelManager interface {
	CreateListener(channelName string, callback ChannelListenerCallback) error
}

// ChannelListenerCallback receives new-instance notifications for one
// registered channel name.
type ChannelListenerCallback interface {
	// OnNewChannelConnection is invoked by the host exactly once per new
	// channel instance. It returns whether the instance is accepted and,
	// when accepted, the callback object that will receive data and close
	// notifications for that instance.
	OnNewChannelConnection(channel VirtualChannel) (accept bool, callback ChannelCallback, err error)
}

// ChannelCallback receives per-instance notifications from the host.
//
// The host calls these synchronously from its own call path, which may be a
// different goroutine or thread than any the plugin runs.
type ChannelCallback interface {
	// OnDataReceived delivers inbound channel bytes for writing to the
	// local pipe. It blocks the caller until the bytes are fully written,
	// or returns a pipe-unavailable error when no local client is
	// connected (see IsPipeUnavailable).
	OnDataReceived(p []byte) error

	// OnClose signals teardown of the channel instance. Idempotent.
	OnClose() error
}

// ChannelRef is an explicit resolve-for-current-context indirection over a
// host channel handle.
//
// The handle is received on the host's call path but used from the bridge's
// background goroutine. Rather than assuming the raw handle is portable
// across execution contexts, every use goes through Resolve, and a
// resolution failure is an error for that operation, never a panic.
type ChannelRef struct {
	channel VirtualChannel
}

// NewChannelRef wraps a host channel handle for cross-context use.
func NewChannelRef(channel VirtualChannel) (*ChannelRef, error) {
	if channel == nil {
		return nil, NewNilChannelError("")
	}
	return &ChannelRef{channel: channel}, nil
}

// Resolve returns the channel handle for use on the calling context.
func (r *ChannelRef) Resolve() (VirtualChannel, error) {
	if r == nil || r.channel == nil {
		return nil, NewChannelUnresolvableError("", nil)
	}
	return r.channel, nil
}
