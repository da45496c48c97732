// Package codec is the single place that decides how data blobs are turned into bytes. Everything goes through
// goccy/go-json so snapshots and schemas stay byte-compatible.
package codec

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func Decode[T any](bz []byte) (T, error) {
	v := new(T)
	err := json.Unmarshal(bz, v)
	if err != nil {
		return *v, eris.Wrap(err, "")
	}
	return *v, nil
}

// DecodeStrict is Decode but rejects object keys that T has no field for. Data blob payloads are decoded this way so
// a field renamed since the payload was written fails loudly.
func DecodeStrict[T any](bz []byte) (T, error) {
	v := new(T)
	dec := json.NewDecoder(bytes.NewReader(bz))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return *v, eris.Wrap(err, "")
	}
	return *v, nil
}

func Encode(v any) ([]byte, error) {
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}
