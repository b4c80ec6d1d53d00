package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets Connect carry plain Go structs as application/json. It
// registers under the "json" name, replacing the protobuf-only default.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	return json.Unmarshal(data, msg)
}

// withJSON is added to every handler and client built by this package.
var withJSON = connect.WithCodec(jsonCodec{})
