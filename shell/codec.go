package shell

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/Facupelli/equipment-rental/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodePayload marshals an event payload into the JSON document stored in the outbox.
func EncodePayload(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(store.ErrEncodingFailed, fmt.Errorf("encode %T: %w", payload, err))
	}

	return data, nil
}

// DecodePayload unmarshals an outbox payload into a typed event struct.
func DecodePayload[T any](data []byte) (T, error) {
	var payload T

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, errors.Join(store.ErrDecodingFailed, fmt.Errorf("decode %T: %w", payload, err))
	}

	return payload, nil
}
