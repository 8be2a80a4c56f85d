// pipe_windows.go: named-pipe endpoint backed by go-winio
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build windows

package rdpipe

import (
	"net"
	"time"

	winio "github.com/Microsoft/go-winio"
)

const pipePathPrefix = `\\.\pipe\`

// listenPipe creates a named-pipe server endpoint at the given address.
//
// Creation fails if another process already holds the pipe name, which
// covers the primary-instance requirement for the first creation in a
// bridge's life; the first flag carries no extra meaning on Windows. The
// listener serves one client at a time: the bridge closes it after each
// accept and recreates it when the client disconnects.
func listenPipe(address string, first bool) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		InputBufferSize:  65536,
		OutputBufferSize: 65536,
	}
	return winio.ListenPipe(pipePathPrefix+address, cfg)
}

// DialPipe connects a local client to a bridge's pipe endpoint.
func DialPipe(address string) (net.Conn, error) {
	timeout := 5 * time.Second
	return winio.DialPipe(pipePathPrefix+address, &timeout)
}
