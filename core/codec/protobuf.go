package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ErrNotProtoMessage is returned when the protobuf codec gets a value that
// is not a generated message.
var ErrNotProtoMessage = errors.New("codec: value is not a proto.Message")

// ProtobufCodec encodes generated protobuf messages. Output is
// deterministic so equal messages produce equal bodies.
type ProtobufCodec struct{}

var marshalOpts = proto.MarshalOptions{Deterministic: true}

func asMessage(v any) (proto.Message, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotProtoMessage, v)
	}
	return msg, nil
}

func (c *ProtobufCodec) Encode(v any) ([]byte, error) {
	msg, err := asMessage(v)
	if err != nil {
		return nil, err
	}
	return marshalOpts.Marshal(msg)
}

func (c *ProtobufCodec) Decode(data []byte, v any) error {
	msg, err := asMessage(v)
	if err != nil {
		return err
	}
	return proto.Unmarshal(data, msg)
}

func (c *ProtobufCodec) Name() string { return "protobuf" }

func (c *ProtobufCodec) ContentType() string { return "application/x-protobuf" }
