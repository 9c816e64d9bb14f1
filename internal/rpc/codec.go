// Package rpc defines the gigboard.v1 Connect services: message types,
// procedure names, handler and client constructors.
//
// Messages are plain Go structs carried with a JSON codec, so the services
// can be called with any Connect or plain HTTP client posting
// application/json.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Codec marshals messages as JSON. Registered under the name "json", which
// makes Connect use the application/json content type.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
