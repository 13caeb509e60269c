// Package jsoncodec lets Connect handlers exchange plain Go structs encoded
// with encoding/json, for services that have no protobuf schema.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Name replaces Connect's built-in protojson codec.
const Name = "json"

var _ connect.Codec = Codec{}

type Codec struct{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// HandlerOptions are the options every JSON-only Connect handler needs.
func HandlerOptions(opts ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

// ClientOptions configures a Connect client to speak the same encoding.
func ClientOptions(opts ...connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
