package link

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/link/packet"
)

// Session is one attached editor. Network I/O runs in dedicated goroutines;
// engine state is touched only from the frame goroutine.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // packet.SessionState

	InQueue  chan []byte // frame goroutine reads commands from here
	OutQueue chan []byte // writer goroutine reads from here

	Addr   string
	Client string

	outBuf [][]byte // buffered events, flushed once per frame (frame goroutine only)

	writeTimeout time.Duration
	readTimeout  time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, inSize, outSize int, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, inSize),
		OutQueue:     make(chan []byte, outSize),
		Addr:         conn.RemoteAddr().String(),
		writeTimeout: 10 * time.Second,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.String("src", "Link"), zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

// SetTimeouts sets the per-frame write deadline and the idle read deadline.
// Zero disables a deadline. Call before Start.
func (s *Session) SetTimeouts(write, read time.Duration) {
	s.writeTimeout = write
	s.readTimeout = read
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a frame until the next FlushOutput.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput hands buffered frames to the writer. A full OutQueue means the
// editor is not keeping up; it is disconnected.
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow editor")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down. Safe to call from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateClosing)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func (s *Session) readLoop() {
	defer s.Close()

	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOne(data) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(data []byte) bool {
	if len(data) > 0 {
		s.log.Debug("TX", zap.String("op", packet.OpcodeName(data[0])), zap.Int("len", len(data)))
	}
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := WriteFrame(s.conn, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write failed", zap.Error(err))
		}
		return false
	}
	return true
}
