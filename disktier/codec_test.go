package disktier_test

import (
	"encoding/json"
)

// jsonCodec is a minimal disktier.Codec[V] used by tests, grounded in the
// spec's "external codec" contract (spec §6): serialize/deserialize only.
type jsonCodec[V any] struct{}

func (jsonCodec[V]) Serialize(v V) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec[V]) Deserialize(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
