package relay

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleMessage() *Message {
	return &Message{
		Position:          Vec3{X: 1000.5, Y: -42.25, Z: 7},
		Radius:            5000,
		SenderName:        "Odysseus",
		ChatText:          "Mayday, mayday!",
		CommandProfileIDs: []string{"Rescue", "Pirates"},
		OriginOwnerID:     144115188075855873,
		InitiatorID:       "c0ffee",
		Sequence:          12,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	msg := sampleMessage()

	data, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
	assert.NoError(t, decoded.Validate())
}

func TestCodec_NegativeOwnerAndEmptyChat(t *testing.T) {
	msg := &Message{
		Radius:            0,
		CommandProfileIDs: []string{"Only"},
		OriginOwnerID:     -7,
	}

	data, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), decoded.OriginOwnerID)
	assert.Empty(t, decoded.ChatText)
	assert.False(t, decoded.HasChat())
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	data, err := Marshal(sampleMessage())
	require.NoError(t, err)

	data = protowire.AppendTag(data, 42, protowire.BytesType)
	data = protowire.AppendString(data, "from a newer client")
	data = protowire.AppendTag(data, 43, protowire.VarintType)
	data = protowire.AppendVarint(data, 99)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, sampleMessage(), decoded)
}

func TestCodec_Malformed(t *testing.T) {
	data, err := Marshal(sampleMessage())
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated", data: data[:len(data)-3]},
		{name: "garbage tag", data: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			assert.True(t, errors.Is(err, ErrInvalidMessage), "got %v", err)
		})
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Message)
		valid  bool
	}{
		{name: "valid", mutate: func(*Message) {}, valid: true},
		{name: "zero radius", mutate: func(m *Message) { m.Radius = 0 }, valid: true},
		{name: "negative radius", mutate: func(m *Message) { m.Radius = -1 }},
		{name: "nan radius", mutate: func(m *Message) { m.Radius = float32(math.NaN()) }},
		{name: "infinite position", mutate: func(m *Message) { m.Position.Y = math.Inf(1) }},
		{name: "no profiles", mutate: func(m *Message) { m.CommandProfileIDs = nil }},
		{name: "blank profiles", mutate: func(m *Message) { m.CommandProfileIDs = []string{" ", ""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMessage()
			tt.mutate(m)
			err := m.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidMessage))
			}
		})
	}

	var nilMsg *Message
	assert.True(t, errors.Is(nilMsg.Validate(), ErrInvalidMessage))
}

func TestMessage_InRange(t *testing.T) {
	m := &Message{Position: Vec3{}, Radius: 100}

	assert.True(t, m.InRange(Vec3{X: 60, Y: 80}))  // exactly 100
	assert.True(t, m.InRange(Vec3{X: 10}))
	assert.False(t, m.InRange(Vec3{X: 150}))
	assert.False(t, m.InRange(Vec3{X: 60, Y: 80, Z: 1}))

	m.Radius = 0
	assert.False(t, m.InRange(Vec3{X: 0.001}))
}

func TestDeduper(t *testing.T) {
	d := NewDeduper(4)

	assert.False(t, d.Seen("a", 1))
	assert.True(t, d.Seen("a", 1))
	assert.False(t, d.Seen("b", 1))
	assert.False(t, d.Seen("a", 3))
	assert.False(t, d.Seen("a", 2)) // late but inside the window
	assert.False(t, d.Seen("a", 10))
	assert.True(t, d.Seen("a", 5)) // fell out of the window

	// Unsequenced messages always pass.
	assert.False(t, d.Seen("", 1))
	assert.False(t, d.Seen("", 1))
	assert.False(t, d.Seen("a", 0))

	d.Reset()
	assert.False(t, d.Seen("a", 10))
}

func TestDeduper_EvictsLeastRecentInitiator(t *testing.T) {
	d := NewDeduper(4)
	d.maxStreams = 2

	assert.False(t, d.Seen("old", 1))
	assert.False(t, d.Seen("busy", 1))
	assert.True(t, d.Seen("busy", 1), "touches busy")

	assert.False(t, d.Seen("new", 1)) // evicts old
	assert.Len(t, d.streams, 2)
	assert.Contains(t, d.streams, "busy")
	assert.Contains(t, d.streams, "new")

	assert.False(t, d.Seen("old", 1), "forgotten initiators start over")
	assert.NotContains(t, d.streams, "busy")
}

// Property: decode(encode(m)) == m for any field values.
func TestCodecRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genMessage := gopter.CombineGens(
		gen.Float64Range(-1e7, 1e7),
		gen.Float64Range(-1e7, 1e7),
		gen.Float64Range(-1e7, 1e7),
		gen.Float32Range(0, 5e4),
		gen.AnyString(),
		gen.AnyString(),
		gen.SliceOf(gen.AlphaString()),
		gen.Int64(),
		gen.UInt64(),
	).Map(func(v []interface{}) *Message {
		return &Message{
			Position:          Vec3{X: v[0].(float64), Y: v[1].(float64), Z: v[2].(float64)},
			Radius:            v[3].(float32),
			SenderName:        v[4].(string),
			ChatText:          v[5].(string),
			CommandProfileIDs: v[6].([]string),
			OriginOwnerID:     v[7].(int64),
			Sequence:          v[8].(uint64),
		}
	})

	properties.Property("round trip preserves every field", prop.ForAll(
		func(m *Message) bool {
			data, err := Marshal(m)
			if err != nil {
				return false
			}
			decoded, err := Unmarshal(data)
			if err != nil {
				return false
			}
			if len(m.CommandProfileIDs) == 0 {
				// nil and empty both decode to nil
				m.CommandProfileIDs = nil
			}
			return reflect.DeepEqual(m, decoded)
		},
		genMessage,
	))

	properties.TestingRun(t)
}

// Property: an observer is in range iff its distance to the origin is at most the radius.
func TestDistanceGateProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("in range iff distance <= radius", prop.ForAll(
		func(ox, oy, oz, px, py, pz float64, radius float32) bool {
			m := &Message{Position: Vec3{X: ox, Y: oy, Z: oz}, Radius: radius}
			observer := Vec3{X: px, Y: py, Z: pz}
			return m.InRange(observer) == (observer.Distance(m.Position) <= float64(radius))
		},
		gen.Float64Range(-1e4, 1e4),
		gen.Float64Range(-1e4, 1e4),
		gen.Float64Range(-1e4, 1e4),
		gen.Float64Range(-1e4, 1e4),
		gen.Float64Range(-1e4, 1e4),
		gen.Float64Range(-1e4, 1e4),
		gen.Float32Range(0, 2e4),
	))

	properties.TestingRun(t)
}
