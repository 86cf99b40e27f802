package sioemit

import (
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Wire discriminants for the request envelope. Values 1 and 3 belong
// to request types the cluster nodes exchange among themselves; an
// emitter never produces them, but the codes stay reserved so the
// table matches the consumer side. Renumbering any of these breaks
// every deployed consumer.
const (
	requestTypeBroadcast         uint8 = 0
	requestTypeBroadcastAck      uint8 = 1
	requestTypeDisconnectSockets uint8 = 2
	requestTypeFetchSockets      uint8 = 3
	requestTypeAddSockets        uint8 = 4
	requestTypeDelSockets        uint8 = 5
)

// Packet carries an encoded event payload and the namespace it was
// emitted on.
type Packet struct {
	NS   string
	Data Value
}

var (
	_ msgpack.CustomEncoder = (*Packet)(nil)
	_ msgpack.CustomDecoder = (*Packet)(nil)
)

func (p *Packet) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := enc.EncodeString("ns"); err != nil {
		return err
	}
	if err := enc.EncodeString(p.NS); err != nil {
		return err
	}
	if err := enc.EncodeString("data"); err != nil {
		return err
	}
	return p.Data.EncodeMsgpack(enc)
}

func (p *Packet) DecodeMsgpack(dec *msgpack.Decoder) error {
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
		case "ns":
			p.NS, err = dec.DecodeString()
		case "data":
			err = p.Data.DecodeMsgpack(dec)
		default:
			err = dec.Skip()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Request is one command to the cluster: a type tag, the data for that
// type, targeting options and two correlation identifiers. Requests
// are built fresh per terminal call and never reused.
type Request struct {
	NodeID string
	ID     string
	Type   uint8
	Packet *Packet // Broadcast only
	Rooms  []Room  // AddSockets/DelSockets only, order preserved
	Opts   Options
}

func newRequest(t uint8, opts Options) Request {
	return Request{
		NodeID: uuid.NewString(),
		ID:     uuid.NewString(),
		Type:   t,
		Opts:   opts,
	}
}

var _ msgpack.CustomEncoder = (*Request)(nil)

// EncodeMsgpack writes the envelope with exactly the keys its type
// declares: "packet" for broadcasts, "rooms" for add/del, neither for
// the rest. Consumers derive the expected key set from the type tag
// alone. The tag encodes as the smallest msgpack uint, a single byte
// for the whole table.
func (r *Request) EncodeMsgpack(enc *msgpack.Encoder) error {
	mapLen := 4
	switch r.Type {
	case requestTypeBroadcast, requestTypeAddSockets, requestTypeDelSockets:
		mapLen = 5
	}
	if err := enc.EncodeMapLen(mapLen); err != nil {
		return err
	}
	if err := enc.EncodeString("type"); err != nil {
		return err
	}
	if err := enc.EncodeUint(uint64(r.Type)); err != nil {
		return err
	}
	switch r.Type {
	case requestTypeBroadcast:
		if err := enc.EncodeString("packet"); err != nil {
			return err
		}
		if err := r.Packet.EncodeMsgpack(enc); err != nil {
			return err
		}
	case requestTypeAddSockets, requestTypeDelSockets:
		if err := enc.EncodeString("rooms"); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(r.Rooms)); err != nil {
			return err
		}
		for _, room := range r.Rooms {
			if err := enc.EncodeString(room); err != nil {
				return err
			}
		}
	}
	if err := enc.EncodeString("opts"); err != nil {
		return err
	}
	if err := r.Opts.EncodeMsgpack(enc); err != nil {
		return err
	}
	if err := enc.EncodeString("node_id"); err != nil {
		return err
	}
	if err := enc.EncodeString(r.NodeID); err != nil {
		return err
	}
	if err := enc.EncodeString("id"); err != nil {
		return err
	}
	return enc.EncodeString(r.ID)
}

// serializeRequest cannot fail for a well-formed request: every field
// is a string, byte slice or uint and the encoder writes to memory.
func serializeRequest(r *Request) []byte {
	b, err := msgpack.Marshal(r)
	if err != nil {
		panic("sioemit: serialize request: " + err.Error())
	}
	return b
}
