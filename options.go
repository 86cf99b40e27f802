package sioemit

import (
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Room identifies a named group of connections within a namespace.
type Room = string

// Flags alter how the servers apply a request.
type Flags uint8

const (
	// FlagBroadcast marks the request as a fan-out to every matching
	// socket rather than a point-to-point directive. Set on every
	// request an emitter produces.
	FlagBroadcast Flags = 1 << iota
	// FlagLocal restricts the request to sockets connected to the
	// receiving node. Meaningless coming from an emitter, which has no
	// local sockets, but part of the shared flag table.
	FlagLocal
)

// Has reports whether f contains all bits of other.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// Options selects the subset of sockets a request applies to: sockets
// that are in at least one of Rooms (all sockets when empty) and in
// none of Except. Both behave as sets; adding a room twice is a no-op.
type Options struct {
	Rooms  []Room
	Except []Room
	Flags  Flags
}

func defaultOptions() Options {
	return Options{Flags: FlagBroadcast}
}

// withRooms and withExcept never mutate the receiver's slices, so two
// emitters forked from the same value stay independent.
func (o Options) withRooms(rooms ...Room) Options {
	o.Rooms = appendMissing(o.Rooms, rooms)
	return o
}

func (o Options) withExcept(rooms ...Room) Options {
	o.Except = appendMissing(o.Except, rooms)
	return o
}

func (o Options) clone() Options {
	o.Rooms = slices.Clone(o.Rooms)
	o.Except = slices.Clone(o.Except)
	return o
}

func appendMissing(dst, add []Room) []Room {
	out := make([]Room, len(dst), len(dst)+len(add))
	copy(out, dst)
	for _, r := range add {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

var (
	_ msgpack.CustomEncoder = (*Options)(nil)
	_ msgpack.CustomDecoder = (*Options)(nil)
)

// EncodeMsgpack writes the options as a three-key map. Empty room sets
// encode as empty arrays so consumers can read a fixed shape.
func (o *Options) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(3); err != nil {
		return err
	}
	if err := enc.EncodeString("rooms"); err != nil {
		return err
	}
	if err := encodeRooms(enc, o.Rooms); err != nil {
		return err
	}
	if err := enc.EncodeString("except"); err != nil {
		return err
	}
	if err := encodeRooms(enc, o.Except); err != nil {
		return err
	}
	if err := enc.EncodeString("flags"); err != nil {
		return err
	}
	return enc.EncodeUint(uint64(o.Flags))
}

func (o *Options) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "rooms":
			err = dec.Decode(&o.Rooms)
		case "except":
			err = dec.Decode(&o.Except)
		case "flags":
			var f uint64
			f, err = dec.DecodeUint64()
			o.Flags = Flags(f)
		default:
			err = dec.Skip()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func encodeRooms(enc *msgpack.Encoder, rooms []Room) error {
	if err := enc.EncodeArrayLen(len(rooms)); err != nil {
		return err
	}
	for _, r := range rooms {
		if err := enc.EncodeString(r); err != nil {
			return err
		}
	}
	return nil
}
