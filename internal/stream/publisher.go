package stream

import (
	"fmt"

	"github.com/pebbe/zmq4"

	"oakd-vio-go/internal/codec"
	"oakd-vio-go/internal/types"
)

// Publisher owns a PUB endpoint for one stream and emits each frame
// bundle as a single five-part message: CBOR metadata followed by the
// image, depth, pointcloud and transform payloads. Sends are
// fire-and-forget; a slow or absent subscriber never blocks the caller.
type Publisher struct {
	uri    string
	ctx    *zmq4.Context
	socket *zmq4.Socket
	closed bool
}

// NewPublisher creates a publisher for the named stream. The transport
// endpoint is not bound until Bind is called.
func NewPublisher(streamName string) (*Publisher, error) {
	uri, err := StreamURI(streamName)
	if err != nil {
		return nil, err
	}
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create zmq context: %w", err)
	}
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		_ = ctx.Term()
		return nil, fmt.Errorf("create pub socket: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		_ = ctx.Term()
		return nil, fmt.Errorf("configure pub socket: %w", err)
	}
	return &Publisher{uri: uri, ctx: ctx, socket: socket}, nil
}

// URI returns the resolved transport address.
func (p *Publisher) URI() string {
	return p.uri
}

// Bind opens the endpoint. A bind failure (address in use, bad
// permissions) is fatal and surfaced to the caller; there is no retry.
func (p *Publisher) Bind() error {
	if err := p.socket.Bind(p.uri); err != nil {
		return fmt.Errorf("bind %s: %w", p.uri, err)
	}
	return nil
}

// Send serializes the bundle's metadata and emits one multipart wire
// message. The bundle is not mutated. Transport errors are returned to
// the caller, which decides whether to continue its acquisition loop.
func (p *Publisher) Send(bundle types.FrameBundle) error {
	meta, err := codec.MarshalMetadata(codec.Describe(bundle))
	if err != nil {
		return err
	}
	_, err = p.socket.SendMessage(
		meta,
		bundle.Image.Data,
		bundle.Depth.Data,
		bundle.Pointcloud.Data,
		bundle.Transform.Data,
	)
	if err != nil {
		return fmt.Errorf("send frame on %s: %w", p.uri, err)
	}
	return nil
}

// Close releases the socket and its context. Safe to call more than once.
func (p *Publisher) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.socket.Close()
	if termErr := p.ctx.Term(); err == nil {
		err = termErr
	}
	return err
}
