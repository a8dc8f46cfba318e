package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

var ErrMalformed = errors.New("malformed payload")

// Envelope is one frame on the wire: {"event": "...", "data": ...}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Decode parses one frame. Numbers in data are kept as json.Number so large
// ids survive intact.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Envelope{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	return env, nil
}

func Encode(event string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}

// decodeFields weakly decodes an object payload into out after checking that
// every required key is present and non-null. Numbers sent where strings are
// expected are accepted; booleans are not.
func decodeFields(data any, out any, required ...string) error {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: expected object, got %T", ErrMalformed, data)
	}
	for _, k := range required {
		if v, ok := m[k]; !ok || v == nil {
			return fmt.Errorf("%w: missing %q", ErrMalformed, k)
		}
	}
	if err := weakDecode(m, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// decodeScalar accepts a bare string or JSON number.
func decodeScalar(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	}
	return "", fmt.Errorf("%w: expected string or number, got %T", ErrMalformed, data)
}

func weakDecode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       strictScalars,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// strictScalars narrows WeaklyTypedInput: booleans only bind to bool fields,
// and floats never become strings. Frames from Decode carry json.Number, so
// a float here came from a caller that already lost precision.
func strictScalars(from, to reflect.Type, data any) (any, error) {
	switch from.Kind() {
	case reflect.Bool:
		if to.Kind() != reflect.Bool {
			return nil, fmt.Errorf("unexpected boolean for %s", to)
		}
	case reflect.Float32, reflect.Float64:
		if to.Kind() == reflect.String {
			return nil, fmt.Errorf("unexpected float for %s", to)
		}
	}
	return data, nil
}
