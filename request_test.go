package sioemit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func rawKeys(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &raw))
	return raw
}

func TestRequestDiscriminantCodes(t *testing.T) {
	broadcast := newRequest(requestTypeBroadcast, defaultOptions())
	broadcast.Packet = &Packet{NS: "/", Data: Value{Text: `["test",2]`}}

	addSockets := newRequest(requestTypeAddSockets, defaultOptions())
	addSockets.Rooms = []Room{"room1"}

	delSockets := newRequest(requestTypeDelSockets, defaultOptions())
	delSockets.Rooms = []Room{"room1"}

	cases := map[uint8]Request{
		0: broadcast,
		2: newRequest(requestTypeDisconnectSockets, defaultOptions()),
		4: addSockets,
		5: delSockets,
	}

	for code, req := range cases {
		data := serializeRequest(&req)

		// "type" is the first key: fixmap header, then 0xa4"type",
		// then the discriminant as a positive fixint, one byte.
		require.GreaterOrEqual(t, len(data), 7)
		assert.Equal(t, byte(0xa4), data[1])
		assert.Equal(t, "type", string(data[2:6]))
		assert.Equal(t, code, data[6])

		decoded, err := DecodeRequest(data)
		require.NoError(t, err)
		assert.Equal(t, code, decoded.Type)
	}
}

func TestRequestFieldPresencePerVariant(t *testing.T) {
	assertCommonKeys := func(keys map[string]any) {
		assert.Contains(t, keys, "type")
		assert.Contains(t, keys, "opts")
		assert.Contains(t, keys, "node_id")
		assert.Contains(t, keys, "id")
	}

	broadcast := newRequest(requestTypeBroadcast, defaultOptions())
	broadcast.Packet = &Packet{NS: "/", Data: Value{Text: `["test",2]`}}
	keys := rawKeys(t, serializeRequest(&broadcast))
	assert.Contains(t, keys, "packet")
	assert.NotContains(t, keys, "rooms")
	assertCommonKeys(keys)

	disconnect := newRequest(requestTypeDisconnectSockets, defaultOptions())
	keys = rawKeys(t, serializeRequest(&disconnect))
	assert.NotContains(t, keys, "packet")
	assert.NotContains(t, keys, "rooms")
	assertCommonKeys(keys)

	for _, requestType := range []uint8{requestTypeAddSockets, requestTypeDelSockets} {
		req := newRequest(requestType, defaultOptions())
		req.Rooms = []Room{"room1", "room2"}
		keys = rawKeys(t, serializeRequest(&req))
		assert.Contains(t, keys, "rooms")
		assert.NotContains(t, keys, "packet")
		assertCommonKeys(keys)
	}
}

func TestRequestRoomOrderRoundTrips(t *testing.T) {
	req := newRequest(requestTypeAddSockets, defaultOptions())
	req.Rooms = []Room{"z", "a", "m", "a2"}

	decoded, err := DecodeRequest(serializeRequest(&req))
	require.NoError(t, err)

	// join/leave rooms are an ordered sequence, not a set
	assert.Equal(t, req.Rooms, decoded.Rooms)
}

func TestRequestTargetingRoundTrips(t *testing.T) {
	opts := defaultOptions().withRooms("room1", "room2").withExcept("room3")
	req := newRequest(requestTypeDisconnectSockets, opts)

	decoded, err := DecodeRequest(serializeRequest(&req))
	require.NoError(t, err)

	assert.ElementsMatch(t, opts.Rooms, decoded.Opts.Rooms)
	assert.ElementsMatch(t, opts.Except, decoded.Opts.Except)
	assert.True(t, decoded.Opts.Flags.Has(FlagBroadcast))
	assert.Equal(t, req.NodeID, decoded.NodeID)
	assert.Equal(t, req.ID, decoded.ID)
}

func TestRequestBroadcastPacketRoundTrips(t *testing.T) {
	req := newRequest(requestTypeBroadcast, defaultOptions())
	req.Packet = &Packet{NS: "/admin", Data: Value{Text: `["test",2]`}}

	decoded, err := DecodeRequest(serializeRequest(&req))
	require.NoError(t, err)

	require.NotNil(t, decoded.Packet)
	assert.Equal(t, "/admin", decoded.Packet.NS)
	assert.Equal(t, `["test",2]`, decoded.Packet.Data.Text)
}

func TestRequestIdentifiersAreUnique(t *testing.T) {
	a := newRequest(requestTypeDisconnectSockets, defaultOptions())
	b := newRequest(requestTypeDisconnectSockets, defaultOptions())

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.NodeID, a.ID)
}

func TestDecodeRequestRejectsConflictingFields(t *testing.T) {
	// hand-built envelope carrying both packet and rooms
	var invalid struct {
		Type   uint8    `msgpack:"type"`
		Packet Packet   `msgpack:"packet"`
		Rooms  []string `msgpack:"rooms"`
		Opts   Options  `msgpack:"opts"`
		NodeID string   `msgpack:"node_id"`
		ID     string   `msgpack:"id"`
	}
	invalid.Rooms = []string{"room1"}
	invalid.ID = "bogus"

	data, err := msgpack.Marshal(&invalid)
	require.NoError(t, err)

	_, err = DecodeRequest(data)
	assert.Error(t, err)
}

func TestDecodeRequestSkipsUnknownKeys(t *testing.T) {
	var future struct {
		Type   uint8   `msgpack:"type"`
		Extra  string  `msgpack:"extra"`
		Opts   Options `msgpack:"opts"`
		NodeID string  `msgpack:"node_id"`
		ID     string  `msgpack:"id"`
	}
	future.Type = requestTypeDisconnectSockets
	future.Extra = "from a newer producer"
	future.NodeID = "node"
	future.ID = "req"

	data, err := msgpack.Marshal(&future)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, requestTypeDisconnectSockets, decoded.Type)
	assert.Equal(t, "req", decoded.ID)
}
