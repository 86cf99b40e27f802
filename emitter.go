package sioemit

import (
	"context"
	"fmt"
)

const (
	// DefaultPrefix is the channel prefix used when none is configured.
	// It must match the adapter prefix of the target cluster.
	DefaultPrefix = "socket.io"
	// DefaultNamespace is the root socket.io namespace.
	DefaultNamespace = "/"
)

// Driver is the abstraction between the emitter and the underlying
// pub/sub system. The only requirement is the ability to publish bytes
// to a named channel. Implementations must be safe for concurrent use;
// the emitter never retries and imposes no timeout, so reliability and
// latency bounds belong to the driver or the caller.
type Driver interface {
	Publish(ctx context.Context, channel string, data []byte) error
}

// Emitter builds commands for a cluster of socket.io servers from a
// process that is not part of the cluster. It is a value type with
// immutable-update setters: every call returns a new Emitter and never
// mutates the receiver, so a partially configured emitter can be
// forked safely.
//
//	e := sioemit.New().Of("/admin")
//	err := e.To("room1").Except("room2").Emit(ctx, driver, "event", "hello")
type Emitter struct {
	opts   Options
	ns     string
	prefix string
	parser Parser
}

// New returns an Emitter for the root namespace using the common
// parser.
func New() Emitter {
	return Emitter{
		opts: defaultOptions(),
		ns:   DefaultNamespace,
	}
}

// NewMsgPack returns an Emitter encoding event payloads with the
// msgpack parser. Only use it against a cluster whose servers are
// configured with the same parser.
func NewMsgPack() Emitter {
	e := New()
	e.parser = ParserMsgPack
	return e
}

// Of sets the namespace. The last call wins.
func (e Emitter) Of(ns string) Emitter {
	e.ns = ns
	return e
}

// To adds rooms to the inclusion set. Calls accumulate; by default
// requests target all rooms.
func (e Emitter) To(rooms ...Room) Emitter {
	e.opts = e.opts.withRooms(rooms...)
	return e
}

// Within is an alias for To.
func (e Emitter) Within(rooms ...Room) Emitter {
	return e.To(rooms...)
}

// Except adds rooms to the exclusion set, applied after inclusion.
func (e Emitter) Except(rooms ...Room) Emitter {
	e.opts = e.opts.withExcept(rooms...)
	return e
}

// Prefix overrides the channel prefix. The last call wins.
func (e Emitter) Prefix(prefix string) Emitter {
	e.prefix = prefix
	return e
}

// Clone returns a deep copy, the sanctioned way to branch a partial
// configuration into independent requests.
func (e Emitter) Clone() Emitter {
	e.opts = e.opts.clone()
	return e
}

// channel derives the request channel for the configured namespace:
// "{prefix}-request#{namespace}#". Servers subscribe to exactly this
// shape, so the format is part of the protocol.
func (e Emitter) channel() string {
	prefix := e.prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s-request#%s#", prefix, e.ns)
}

// Join makes the selected sockets join the given rooms. Room order is
// preserved on the wire.
func (e Emitter) Join(ctx context.Context, d Driver, rooms ...Room) error {
	req := newRequest(requestTypeAddSockets, e.opts)
	req.Rooms = rooms
	return d.Publish(ctx, e.channel(), serializeRequest(&req))
}

// Leave makes the selected sockets leave the given rooms.
func (e Emitter) Leave(ctx context.Context, d Driver, rooms ...Room) error {
	req := newRequest(requestTypeDelSockets, e.opts)
	req.Rooms = rooms
	return d.Publish(ctx, e.channel(), serializeRequest(&req))
}

// Disconnect disconnects the selected sockets from their namespace.
func (e Emitter) Disconnect(ctx context.Context, d Driver) error {
	req := newRequest(requestTypeDisconnectSockets, e.opts)
	return d.Publish(ctx, e.channel(), serializeRequest(&req))
}

// Emit broadcasts an event to the selected sockets. A payload that the
// configured parser cannot encode returns a *ParserError without
// contacting the driver; any other error comes from the driver
// unchanged.
func (e Emitter) Emit(ctx context.Context, d Driver, event string, msg any) error {
	value, err := e.parser.encodeValue(event, msg)
	if err != nil {
		return err
	}

	req := newRequest(requestTypeBroadcast, e.opts)
	req.Packet = &Packet{NS: e.ns, Data: value}
	return d.Publish(ctx, e.channel(), serializeRequest(&req))
}
