package codec

import (
	"encoding/json"
	"errors"
	"mime"
)

var (
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

// Codec encodes and decodes request and response bodies
type Codec interface {
	// Encode encodes a value to bytes
	Encode(v any) ([]byte, error)

	// Decode decodes bytes to a value
	Decode(data []byte, v any) error

	// Name returns the codec name
	Name() string

	// ContentType is the media type written with encoded bodies
	ContentType() string
}

// Shared codec instances
var (
	JSON     Codec = &JSONCodec{}
	Protobuf Codec = &ProtobufCodec{}
)

// ForContentType picks a codec from a Content-Type header value
func ForContentType(contentType string) (Codec, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, ErrUnsupportedCodec
	}
	switch mediaType {
	case "application/json":
		return JSON, nil
	case "application/x-protobuf", "application/protobuf":
		return Protobuf, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}

// JSONCodec implements JSON encoding/decoding
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Name() string {
	return "json"
}

func (c *JSONCodec) ContentType() string {
	return "application/json"
}
