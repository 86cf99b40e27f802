package sioemit

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// DecodeRequest reads a serialized request envelope back into a
// Request. Servers embed their own decoder; this one exists for
// tooling that taps the request channels, and it pins the wire
// contract in tests. Unknown keys are skipped so envelopes from newer
// producers still decode.
func DecodeRequest(data []byte) (*Request, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("failed to decode request envelope: %w", err)
	}

	var req Request
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("failed to decode request key: %w", err)
		}

		switch key {
		case "type":
			req.Type, err = dec.DecodeUint8()
		case "packet":
			req.Packet = &Packet{}
			err = req.Packet.DecodeMsgpack(dec)
		case "rooms":
			err = dec.Decode(&req.Rooms)
		case "opts":
			err = req.Opts.DecodeMsgpack(dec)
		case "node_id":
			req.NodeID, err = dec.DecodeString()
		case "id":
			req.ID, err = dec.DecodeString()
		default:
			err = dec.Skip()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode request field %q: %w", key, err)
		}
	}

	if req.Packet != nil && req.Rooms != nil {
		return nil, fmt.Errorf("invalid request %s: carries both packet and rooms", req.ID)
	}

	return &req, nil
}

// TypeName returns the human-readable name of the request's type tag.
func (r *Request) TypeName() string {
	switch r.Type {
	case requestTypeBroadcast:
		return "broadcast"
	case requestTypeBroadcastAck:
		return "broadcast_ack"
	case requestTypeDisconnectSockets:
		return "disconnect_sockets"
	case requestTypeFetchSockets:
		return "fetch_sockets"
	case requestTypeAddSockets:
		return "add_sockets"
	case requestTypeDelSockets:
		return "del_sockets"
	default:
		return fmt.Sprintf("unknown(%d)", r.Type)
	}
}
