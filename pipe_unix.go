// pipe_unix.go: Unix domain socket standing in for the Windows named pipe
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package rdpipe

import (
	"net"
	"os"
	"path/filepath"
)

// PipeDir returns the directory holding pipe socket files on this platform.
func PipeDir() string {
	return os.TempDir()
}

// PipePath maps a pipe address to its socket path.
func PipePath(address string) string {
	return filepath.Join(PipeDir(), address+".sock")
}

// listenPipe binds a Unix domain socket at the path derived from address.
//
// The first creation in a bridge's life must not clobber an address held by
// another process, so binding fails if the socket file already exists.
// Re-creations after a disconnect reuse the address; the previous listener
// removed its socket file on close, but a leftover from an earlier crashed
// cycle is cleared so the bridge can keep serving.
func listenPipe(address string, first bool) (net.Listener, error) {
	path := PipePath(address)
	if !first {
		_ = os.Remove(path)
	}
	return net.Listen("unix", path)
}

// DialPipe connects a local client to a bridge's pipe endpoint.
func DialPipe(address string) (net.Conn, error) {
	return net.Dial("unix", PipePath(address))
}
