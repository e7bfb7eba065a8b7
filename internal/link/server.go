package link

import (
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Server accepts editor connections. New sessions reach the frame goroutine
// through a channel.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	inSize   int
	outSize  int
	writeTO  time.Duration
	readTO   time.Duration
	log      *zap.Logger
	closeCh  chan struct{}
}

// ServerOptions sizes per-session queues and deadlines.
type ServerOptions struct {
	InQueueSize  int
	OutQueueSize int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

func NewServer(bindAddr string, opts ServerOptions, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: ln,
		newConns: make(chan *Session, 16),
		inSize:   opts.InQueueSize,
		outSize:  opts.OutQueueSize,
		writeTO:  opts.WriteTimeout,
		readTO:   opts.ReadTimeout,
		log:      log,
		closeCh:  make(chan struct{}),
	}
	return s, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.String("src", "Link"), zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.inSize, s.outSize, s.log)
		sess.SetTimeouts(s.writeTO, s.readTO)
		sess.Start()

		s.log.Info("editor connected", zap.String("src", "Link"), zap.Uint64("session", id), zap.String("addr", sess.Addr))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("session queue full, rejecting editor", zap.String("src", "Link"))
			sess.Close()
		}
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
