package relay

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the relay packet. 1-6 match the packet layout existing
// clients already speak; 7 and 8 carry de-duplication data.
const (
	fieldPosition          protowire.Number = 1
	fieldRadius            protowire.Number = 2
	fieldSenderName        protowire.Number = 3
	fieldChatText          protowire.Number = 4
	fieldCommandProfileIDs protowire.Number = 5
	fieldOriginOwnerID     protowire.Number = 6
	fieldInitiatorID       protowire.Number = 7
	fieldSequence          protowire.Number = 8

	fieldX protowire.Number = 1
	fieldY protowire.Number = 2
	fieldZ protowire.Number = 3
)

// Marshal encodes a message in protobuf wire format.
func Marshal(m *Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}

	var pos []byte
	pos = appendDouble(pos, fieldX, m.Position.X)
	pos = appendDouble(pos, fieldY, m.Position.Y)
	pos = appendDouble(pos, fieldZ, m.Position.Z)

	b := make([]byte, 0, 64+len(m.SenderName)+len(m.ChatText))
	b = protowire.AppendTag(b, fieldPosition, protowire.BytesType)
	b = protowire.AppendBytes(b, pos)

	b = protowire.AppendTag(b, fieldRadius, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(m.Radius))

	if m.SenderName != "" {
		b = protowire.AppendTag(b, fieldSenderName, protowire.BytesType)
		b = protowire.AppendString(b, m.SenderName)
	}
	if m.ChatText != "" {
		b = protowire.AppendTag(b, fieldChatText, protowire.BytesType)
		b = protowire.AppendString(b, m.ChatText)
	}
	for _, id := range m.CommandProfileIDs {
		b = protowire.AppendTag(b, fieldCommandProfileIDs, protowire.BytesType)
		b = protowire.AppendString(b, id)
	}
	if m.OriginOwnerID != 0 {
		b = protowire.AppendTag(b, fieldOriginOwnerID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.OriginOwnerID))
	}
	if m.InitiatorID != "" {
		b = protowire.AppendTag(b, fieldInitiatorID, protowire.BytesType)
		b = protowire.AppendString(b, m.InitiatorID)
	}
	if m.Sequence != 0 {
		b = protowire.AppendTag(b, fieldSequence, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Sequence)
	}

	return b, nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// Unmarshal decodes a message. It checks wire structure only; call
// Validate before acting on the result.
func Unmarshal(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}

	m := &Message{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, wireError(protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldPosition && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, wireError(protowire.ParseError(n))
			}
			pos, err := unmarshalVec3(v)
			if err != nil {
				return nil, err
			}
			m.Position = pos
			data = data[n:]
		case num == fieldRadius && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, wireError(protowire.ParseError(n))
			}
			m.Radius = math.Float32frombits(v)
			data = data[n:]
		case (num == fieldSenderName || num == fieldChatText || num == fieldCommandProfileIDs || num == fieldInitiatorID) &&
			typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, wireError(protowire.ParseError(n))
			}
			switch num {
			case fieldSenderName:
				m.SenderName = v
			case fieldChatText:
				m.ChatText = v
			case fieldCommandProfileIDs:
				m.CommandProfileIDs = append(m.CommandProfileIDs, v)
			case fieldInitiatorID:
				m.InitiatorID = v
			}
			data = data[n:]
		case (num == fieldOriginOwnerID || num == fieldSequence) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, wireError(protowire.ParseError(n))
			}
			if num == fieldOriginOwnerID {
				m.OriginOwnerID = int64(v)
			} else {
				m.Sequence = v
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, wireError(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	return m, nil
}

func unmarshalVec3(data []byte) (Vec3, error) {
	var v Vec3
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, wireError(protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.Fixed64Type || num < fieldX || num > fieldZ {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return v, wireError(protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		bits, n := protowire.ConsumeFixed64(data)
		if n < 0 {
			return v, wireError(protowire.ParseError(n))
		}
		f := math.Float64frombits(bits)
		switch num {
		case fieldX:
			v.X = f
		case fieldY:
			v.Y = f
		case fieldZ:
			v.Z = f
		}
		data = data[n:]
	}
	return v, nil
}

func wireError(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
}
