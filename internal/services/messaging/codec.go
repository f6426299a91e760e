package messaging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns notification payloads into wire bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Name() string
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Name() string                  { return "json" }

// msgpackCodec reuses the json tags so both encodings carry the same keys.
type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Name() string { return "msgpack" }

// NewCodec returns the codec for name. An empty name selects JSON.
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown notification encoding %q", name)
	}
}
