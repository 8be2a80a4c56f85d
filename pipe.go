// pipe.go: pipe endpoint addressing shared by all platforms
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"fmt"
	"os"
)

// DefaultPipePrefix is the fixed leading component of every pipe address.
const DefaultPipePrefix = "RdPipe"

// pipeAddress builds the locally-unique address for one channel instance:
// <prefix>_<pid>_<channel-name>_<instance-id>.
//
// The process id and instance id keep two bridges from colliding even when
// they serve the same channel name concurrently (multiple sessions,
// reconnects). The address never changes for a bridge's lifetime.
func pipeAddress(prefix, channelName, instanceID string) string {
	return fmt.Sprintf("%s_%d_%s_%s", prefix, os.Getpid(), channelName, instanceID)
}
