// Package rdpipe bridges remote-desktop dynamic virtual channels to local
// named pipes, so that any local process can exchange raw byte streams with
// a remote client session without speaking the host's channel protocol.
//
// The host process (the remote-desktop client) owns the channel lifecycle:
// it asks the plugin to register listeners by channel name, creates a
// channel instance whenever the remote side opens one, pushes inbound data
// into the plugin, and signals close/teardown. For every channel instance
// the plugin opens a named-pipe server at a process-unique address and
// relays bytes verbatim in both directions:
//
//	local pipe client  <-- named pipe -->  ChannelBridge  <-- host API -->  remote session
//
// Local pipe disconnects are recoverable: the bridge recreates its pipe
// endpoint at the same address and waits for the next client. The channel
// side is owned by the host and a bridge lives exactly as long as its
// channel instance.
//
// Basic usage:
//
//	plugin, err := rdpipe.NewPlugin(rdpipe.DefaultConfig, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer plugin.Close()
//
//	// mgr is the host-provided channel manager
//	if err := plugin.Initialize(mgr); err != nil {
//	    log.Fatal(err)
//	}
//
// On Windows the pipe endpoint is a real named pipe served through
// github.com/Microsoft/go-winio; elsewhere a Unix domain socket under the
// system temp directory stands in, with identical bridge semantics.
//
// The relay makes no attempt to interpret or frame the bytes it carries;
// framing, if needed, belongs to the local client and the remote peer.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package rdpipe
