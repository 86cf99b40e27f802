package sioemit

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Parser selects how event payloads are encoded before they are placed
// in a request envelope. Every producer and server in a cluster must
// use the same parser; a mismatch is not detectable at runtime and
// results in garbage on the consuming side.
type Parser uint8

const (
	// ParserCommon is the default socket.io parser: the event and its
	// payload become a JSON array carried as text.
	ParserCommon Parser = iota
	// ParserMsgPack encodes the same array as msgpack binary, trading
	// readability for size.
	ParserMsgPack
)

func (p Parser) String() string {
	switch p {
	case ParserMsgPack:
		return "msgpack"
	default:
		return "common"
	}
}

// ParserError reports that an event payload could not be encoded. It
// is returned before the driver is contacted, so a failed Emit never
// produces a partially sent request.
type ParserError struct {
	Err error
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("parser: %v", e.Err)
}

func (e *ParserError) Unwrap() error {
	return e.Err
}

// Value is an encoded event payload, opaque to the envelope: text for
// the common parser, binary for the msgpack parser. Exactly one of the
// two fields is set.
type Value struct {
	Text string
	Bin  []byte
}

var (
	_ msgpack.CustomEncoder = (*Value)(nil)
	_ msgpack.CustomDecoder = (*Value)(nil)
)

func (v *Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	if v.Bin != nil {
		return enc.EncodeBytes(v.Bin)
	}
	return enc.EncodeString(v.Text)
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	code, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if msgpcode.IsBin(code) {
		v.Bin, err = dec.DecodeBytes()
		return err
	}
	v.Text, err = dec.DecodeString()
	return err
}

// encodeValue runs the selected strategy over `[event, msg]`, the data
// section of a socket.io event packet. An empty event name encodes the
// payload alone.
func (p Parser) encodeValue(event string, msg any) (Value, error) {
	data := []any{event, msg}
	if event == "" {
		data = []any{msg}
	}

	switch p {
	case ParserMsgPack:
		b, err := msgpack.Marshal(data)
		if err != nil {
			return Value{}, &ParserError{Err: err}
		}
		return Value{Bin: b}, nil
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return Value{}, &ParserError{Err: err}
		}
		return Value{Text: string(b)}, nil
	}
}
