package disktier

// Codec serializes values to and from bytes for on-disk storage (spec §6,
// "external codec"). Behaviour is undefined for values outside the codec's
// domain; the disk tier never inspects the bytes it stores.
type Codec[V any] interface {
	Serialize(v V) ([]byte, error)
	Deserialize(b []byte) (V, error)
}
