package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is the envelope every operation returns. Exactly one of Err and Ok
// is set.
type Response[T any] struct {
	Err *string `json:"err,omitempty"`
	Ok  *T      `json:"ok,omitempty"`
}

// Empty is the ok payload of operations with no meaningful result. It encodes
// as {} so callers can tell "dispatched" apart from "failed".
type Empty struct{}

// encodeFallback is returned if an envelope cannot be encoded.
var encodeFallback = []byte(`{"err":"internal error: could not encode response"}`)

func okResponse[T any](v *T) []byte {
	return encode(Response[T]{Ok: v})
}

func errResponse(err error) []byte {
	msg := err.Error()
	return encode(Response[Empty]{Err: &msg})
}

func encode[T any](resp Response[T]) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		return encodeFallback
	}
	return data
}

// decode unmarshals data into v after checking that every required field is
// present and non-null. encoding/json alone would silently zero them.
func decode(data []byte, v any, required ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for _, name := range required {
		raw, ok := fields[name]
		if !ok {
			return fmt.Errorf("%w: missing field %q", ErrInvalidRequest, name)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return fmt.Errorf("%w: field %q must not be null", ErrInvalidRequest, name)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// EncodeOK builds an ok envelope for transports answering outside the bridge.
func EncodeOK[T any](v *T) []byte { return okResponse(v) }

// EncodeErr builds an err envelope carrying err's message.
func EncodeErr(err error) []byte { return errResponse(err) }
