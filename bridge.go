// bridge.go: the channel-to-pipe relay core
//
// A ChannelBridge pairs one host channel instance with one named-pipe
// address and relays bytes in both directions. The accept/reconnect loop
// cycles Listening -> Connected -> Disconnecting -> Listening until the
// host tears the instance down or pipe creation fails; peer disconnects are
// recovered by recreating the endpoint at the same address, pipe-creation
// failures are fatal for the bridge.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChannelBridge relays bytes between one host channel instance and a local
// named pipe endpoint.
//
// Bytes read from the pipe are forwarded to the channel in read order, one
// channel write per pipe read. Inbound channel data arrives through
// OnDataReceived on the host's call path and is written to the currently
// connected pipe client, or rejected with a pipe-unavailable error when no
// client is connected.
//
// A bridge is created by the listener callback when the host reports a new
// channel instance and lives until the host calls OnClose or the plugin
// shuts down.
type ChannelBridge struct {
	channelName string
	instanceID  string
	pipeAddr    string

	channel  *ChannelRef
	logger   Logger
	settings *atomic.Pointer[Config]

	// writerMu guards writer, the write half of the currently connected
	// pipe. nil while no local client is connected. Both the accept loop
	// and the host's OnDataReceived/OnClose path touch it, always
	// check-then-act under the same lock acquisition.
	writerMu sync.Mutex
	writer   net.Conn

	// listenerMu guards the endpoint currently accepting, so OnClose can
	// unblock a pending accept from the host's call path.
	listenerMu sync.Mutex
	listener   net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	// release detaches the bridge from the plugin registry at teardown.
	release func()

	metrics bridgeMetrics
}

// newChannelBridge wires a bridge to its channel instance. The caller must
// invoke start exactly once afterwards.
func newChannelBridge(parent context.Context, channelName, instanceID string, channel *ChannelRef, settings *atomic.Pointer[Config], logger Logger, release func()) *ChannelBridge {
	cfg := settings.Load()
	ctx, cancel := context.WithCancel(parent)
	return &ChannelBridge{
		channelName: channelName,
		instanceID:  instanceID,
		pipeAddr:    pipeAddress(cfg.PipePrefix, channelName, instanceID),
		channel:     channel,
		logger:      logger.With("channel", channelName, "instance", instanceID),
		settings:    settings,
		ctx:         ctx,
		cancel:      cancel,
		release:     release,
	}
}

// ChannelName returns the logical channel name this bridge serves.
func (b *ChannelBridge) ChannelName() string {
	return b.channelName
}

// PipeAddress returns the fixed local pipe address of this bridge.
func (b *ChannelBridge) PipeAddress() string {
	return b.pipeAddr
}

// start spawns the accept/reconnect loop.
func (b *ChannelBridge) start() {
	b.wg.Add(1)
	go b.acceptLoop()
}

// acceptLoop is the bridge's background task. Each cycle creates the pipe
// endpoint, waits for one local client, relays until the connection drops,
// then recreates the endpoint at the same address. It exits on bridge
// teardown or on a fatal pipe-creation error.
func (b *ChannelBridge) acceptLoop() {
	defer b.wg.Done()

	first := true
	for {
		if b.ctx.Err() != nil {
			return
		}

		listener, err := listenPipe(b.pipeAddr, first)
		if err != nil {
			// Resource failure: an address held by someone else or a
			// permission problem will not self-heal, so the bridge is dead.
			// The host learns about it through pipe-unavailable errors on
			// subsequent inbound data.
			b.logger.Error("pipe endpoint creation failed, bridge terminated",
				"address", b.pipeAddr,
				"error", NewPipeCreateError(b.pipeAddr, err))
			return
		}
		first = false
		b.setListener(listener)
		if b.ctx.Err() != nil {
			b.closeListener()
			return
		}

		b.logger.Debug("waiting for local pipe client", "address", b.pipeAddr)
		conn, err := listener.Accept()
		if err != nil {
			b.closeListener()
			if b.ctx.Err() != nil {
				return
			}
			b.logger.Error("pipe accept failed, bridge terminated",
				"address", b.pipeAddr,
				"error", NewPipeAcceptError(b.pipeAddr, err))
			return
		}

		// One client per bridge: close the endpoint so the OS rejects
		// further connection attempts while this session is live.
		b.closeListener()

		if !b.installWriter(conn) {
			// Teardown won the race with this accept; the connection was
			// never published, so it is ours to close.
			_ = conn.Close()
			return
		}
		b.metrics.connected()
		b.logger.Info("local pipe client connected", "address", b.pipeAddr)

		b.serveConn(conn)

		b.clearWriter()
		_ = conn.Close()
		b.metrics.disconnected()
		b.logger.Info("local pipe client disconnected", "address", b.pipeAddr)
	}
}

// serveConn reads from the connected pipe and forwards to the channel until
// the connection fails, the peer closes, or the channel rejects a write.
func (b *ChannelBridge) serveConn(conn net.Conn) {
	buf := make([]byte, b.readBufferSize())
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			channel, rerr := b.channel.Resolve()
			if rerr != nil {
				b.logger.Error("channel handle unresolvable, dropping pipe connection", "error", rerr)
				return
			}
			if werr := channel.Write(buf[:n]); werr != nil {
				// The channel side is unrecoverable without host
				// intervention; drop the pipe connection.
				b.logger.Error("channel write failed, dropping pipe connection",
					"error", NewChannelWriteError(b.channelName, werr))
				return
			}
			b.metrics.addToChannel(int64(n))
		}
		if err != nil {
			switch {
			case stderrors.Is(err, io.EOF):
				b.logger.Info("pipe closed by client")
			case isTransientReadError(err):
				b.logger.Warn("transient pipe read error, retrying", "error", err)
				continue
			case b.ctx.Err() != nil:
				// Teardown closed the connection under us.
			default:
				b.logger.Error("pipe read failed", "error", err)
			}
			return
		}
	}
}

// OnDataReceived implements ChannelCallback. It writes inbound channel
// bytes to the connected pipe client, blocking the host's call path until
// the write completes.
//
// With no client connected it returns a pipe-unavailable error
// (IsPipeUnavailable reports true) and leaves all state untouched; the
// host decides whether to drop or retry the data.
func (b *ChannelBridge) OnDataReceived(p []byte) error {
	b.writerMu.Lock()
	defer b.writerMu.Unlock()

	if b.writer == nil {
		b.logger.Debug("inbound data with no local pipe client", "bytes", len(p))
		return NewPipeUnavailableError(b.channelName)
	}

	if _, err := b.writer.Write(p); err != nil {
		return NewPipeWriteError(b.channelName, err)
	}
	b.metrics.addToPipe(int64(len(p)))
	return nil
}

// OnClose implements ChannelCallback. It tears the bridge down: the write
// half of a connected pipe is shut down in an orderly fashion, the
// background loop is stopped and joined. Idempotent; later calls are
// no-ops.
func (b *ChannelBridge) OnClose() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.logger.Debug("closing bridge")
	b.cancel()

	b.writerMu.Lock()
	if b.writer != nil {
		shutdownWrite(b.writer)
		// Full close as well, to unblock the loop's pending read.
		_ = b.writer.Close()
	}
	b.writerMu.Unlock()

	b.closeListener()
	b.wg.Wait()

	if b.release != nil {
		b.release()
	}
	b.logger.Info("bridge closed", "address", b.pipeAddr)
	return nil
}

// Stats returns a point-in-time snapshot of the bridge's relay counters.
func (b *ChannelBridge) Stats() BridgeStats {
	b.writerMu.Lock()
	connected := b.writer != nil
	b.writerMu.Unlock()
	return b.metrics.snapshot(b.channelName, b.instanceID, b.pipeAddr, connected)
}

func (b *ChannelBridge) readBufferSize() int {
	if cfg := b.settings.Load(); cfg != nil && cfg.ReadBufferSize > 0 {
		return cfg.ReadBufferSize
	}
	return DefaultReadBufferSize
}

// installWriter publishes conn as the connected pipe writer. It refuses
// once teardown has begun: OnClose flips closed before it inspects the
// writer slot, so checking closed under the same lock guarantees that a
// connection accepted concurrently with teardown is either closed by
// OnClose (published first) or handed back to the accept loop to close
// (refused), never left open with nobody responsible for it.
func (b *ChannelBridge) installWriter(conn net.Conn) bool {
	b.writerMu.Lock()
	defer b.writerMu.Unlock()
	if b.closed.Load() {
		return false
	}
	b.writer = conn
	return true
}

func (b *ChannelBridge) clearWriter() {
	b.writerMu.Lock()
	b.writer = nil
	b.writerMu.Unlock()
}

func (b *ChannelBridge) setListener(l net.Listener) {
	b.listenerMu.Lock()
	b.listener = l
	b.listenerMu.Unlock()
}

func (b *ChannelBridge) closeListener() {
	b.listenerMu.Lock()
	if b.listener != nil {
		_ = b.listener.Close()
		b.listener = nil
	}
	b.listenerMu.Unlock()
}

// shutdownWrite half-closes the write side where the connection supports
// it, flushing buffered data to the peer before the full close.
func shutdownWrite(conn net.Conn) {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := conn.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
}

// isTransientReadError reports whether a pipe read failed with a
// would-block condition that is safe to retry on the same connection.
func isTransientReadError(err error) bool {
	if stderrors.Is(err, syscall.EAGAIN) || stderrors.Is(err, syscall.EWOULDBLOCK) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}
