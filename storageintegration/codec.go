package storageintegration

// byteCodec is the identity codec used by the file-data specialization
// (spec §4.10: "file-data (string→bytes) caches"): the disk tier already
// stores bytes, so no marshaling is needed.
type byteCodec struct{}

func (byteCodec) Serialize(v []byte) ([]byte, error) { return v, nil }

func (byteCodec) Deserialize(b []byte) ([]byte, error) { return b, nil }
