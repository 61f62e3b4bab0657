package stream

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"oakd-vio-go/internal/codec"
	"oakd-vio-go/internal/types"
)

const (
	wireParts    = 5
	idleSleep    = 1 * time.Millisecond
	errorBackoff = 10 * time.Millisecond
	closeTimeout = 1 * time.Second
)

// ErrClosed is returned by GetNext after Close.
var ErrClosed = errors.New("subscriber is closed")

// SubscriberStats counts frames as they move through the subscriber.
// Dropped counts buffered frames that were overwritten before being
// consumed; that is expected behavior when the caller is slower than
// the producer.
type SubscriberStats struct {
	Received     uint64
	Dropped      uint64
	Consumed     uint64
	DecodeErrors uint64
}

// Subscriber owns a SUB endpoint and a background receive loop that
// keeps only the most recently received wire message. GetNext hands the
// buffered frame to the caller without ever blocking on the transport.
//
// Lifecycle is Disconnected -> Connected -> Closed; there is no way
// back to Disconnected, and Close is idempotent.
type Subscriber struct {
	uri    string
	ctx    *zmq4.Context
	socket *zmq4.Socket

	slot *latestSlot

	received     atomic.Uint64
	dropped      atomic.Uint64
	consumed     atomic.Uint64
	decodeErrors atomic.Uint64

	connected bool
	closed    atomic.Bool
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	logEvery   int
	logCounter int
}

// NewSubscriber creates a subscriber for the named stream. No transport
// activity happens until Connect.
func NewSubscriber(streamName string) (*Subscriber, error) {
	uri, err := StreamURI(streamName)
	if err != nil {
		return nil, err
	}
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create zmq context: %w", err)
	}
	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		_ = ctx.Term()
		return nil, fmt.Errorf("create sub socket: %w", err)
	}
	return &Subscriber{
		uri:      uri,
		ctx:      ctx,
		socket:   socket,
		slot:     newLatestSlot(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logEvery: 100,
	}, nil
}

// URI returns the resolved transport address.
func (s *Subscriber) URI() string {
	return s.uri
}

// Connect connects the endpoint, limits transport buffering to the
// single newest unread message, and starts the background receive loop.
func (s *Subscriber) Connect() error {
	if s.connected {
		return errors.New("subscriber already connected")
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.socket.Connect(s.uri); err != nil {
		return fmt.Errorf("connect %s: %w", s.uri, err)
	}
	if err := s.socket.SetSubscribe(""); err != nil {
		return fmt.Errorf("subscribe on %s: %w", s.uri, err)
	}
	// Keep at most one unread message in the transport; together with
	// the slot overwrite this yields latest-frame-wins delivery.
	if err := s.socket.SetRcvhwm(1); err != nil {
		return fmt.Errorf("configure %s: %w", s.uri, err)
	}
	// Pending messages must not delay Close.
	if err := s.socket.SetLinger(0); err != nil {
		return fmt.Errorf("configure %s: %w", s.uri, err)
	}

	s.connected = true
	go s.listen()
	return nil
}

// listen drains the socket until Close, retaining only the newest
// message. A malformed or erroring receive never terminates the loop.
func (s *Subscriber) listen() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		parts, err := s.socket.RecvMessageBytes(zmq4.DONTWAIT)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				time.Sleep(idleSleep)
				continue
			}
			s.logEveryN("subscriber recv error on %s: %v", s.uri, err)
			time.Sleep(errorBackoff)
			continue
		}

		s.received.Add(1)
		if s.slot.Put(parts) {
			s.dropped.Add(1)
		}
	}
}

// GetNext takes the buffered wire message, if any, and decodes it into a
// frame bundle. Returns (nil, nil) when no new frame has arrived since
// the previous call; that is not an error. A message that fails to
// decode is discarded and the error, wrapping codec.ErrMalformedMetadata
// or codec.ErrSizeMismatch, is returned; subsequent calls proceed on
// later frames as usual.
func (s *Subscriber) GetNext() (*types.FrameBundle, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	parts, ok := s.slot.Take()
	if !ok {
		return nil, nil
	}

	bundle, err := decodeWireMessage(parts)
	if err != nil {
		s.decodeErrors.Add(1)
		return nil, fmt.Errorf("decode buffered frame: %w", err)
	}
	s.consumed.Add(1)
	return bundle, nil
}

func decodeWireMessage(parts [][]byte) (*types.FrameBundle, error) {
	if len(parts) != wireParts {
		return nil, fmt.Errorf("%w: expected %d message parts, got %d",
			codec.ErrMalformedMetadata, wireParts, len(parts))
	}
	meta, err := codec.UnmarshalMetadata(parts[0])
	if err != nil {
		return nil, err
	}
	image, err := codec.ReconstructBuffer(parts[1], meta.Image)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	depth, err := codec.ReconstructBuffer(parts[2], meta.Depth)
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	pointcloud, err := codec.ReconstructBuffer(parts[3], meta.Pointcloud)
	if err != nil {
		return nil, fmt.Errorf("pointcloud: %w", err)
	}
	transform, err := codec.ReconstructBuffer(parts[4], meta.Transform)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	return &types.FrameBundle{
		Image:      image,
		Depth:      depth,
		Pointcloud: pointcloud,
		Transform:  transform,
	}, nil
}

// Stats returns a snapshot of the subscriber's counters.
func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		Received:     s.received.Load(),
		Dropped:      s.dropped.Load(),
		Consumed:     s.consumed.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
}

// Close stops the receive loop, waits for it up to a bounded timeout,
// then releases the socket and context. Subsequent calls are no-ops.
func (s *Subscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		if s.connected {
			select {
			case <-s.done:
			case <-time.After(closeTimeout):
				log.Printf("subscriber on %s: receive loop did not stop in %v", s.uri, closeTimeout)
			}
		}
		err = s.socket.Close()
		if termErr := s.ctx.Term(); err == nil {
			err = termErr
		}
	})
	return err
}

func (s *Subscriber) logEveryN(format string, args ...any) {
	s.logCounter++
	if s.logCounter%s.logEvery == 0 {
		log.Printf(format, args...)
	}
}
