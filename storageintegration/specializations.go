package storageintegration

import "github.com/voltcache/corecache/multilevel"

// EntityCache returns the shared long-keyed entity cache for channelID,
// creating it on first use (spec §4.10: "entity (long→object) caches").
func EntityCache(si *StorageIntegration, channelID string, codec EntityCodec) (multilevel.Cache[int64, any], error) {
	return GetOrCreateCache[int64, any](si, channelID, CacheTypeEntity, codec)
}

// TypeMetadataCache returns the shared string-keyed type-metadata cache for
// channelID, creating it on first use (spec §4.10: "type-metadata
// (string→object) caches").
func TypeMetadataCache(si *StorageIntegration, channelID string, codec TypeMetadataCodec) (multilevel.Cache[string, any], error) {
	return GetOrCreateCache[string, any](si, channelID, CacheTypeTypeMetadata, codec)
}

// FileDataCache returns the shared string-keyed file-data cache for
// channelID, creating it on first use (spec §4.10: "file-data
// (string→bytes) caches"). Values are stored verbatim via byteCodec since
// the disk tier already persists raw bytes.
func FileDataCache(si *StorageIntegration, channelID string) (multilevel.Cache[string, []byte], error) {
	return GetOrCreateCache[string, []byte](si, channelID, CacheTypeFileData, byteCodec{})
}

// EntityCodec serializes the arbitrary object values stored in an entity
// cache; callers supply a concrete codec (e.g. JSON, gob) matching how the
// storage engine marshals entities elsewhere.
type EntityCodec = codecAny

// TypeMetadataCodec serializes the arbitrary object values stored in a
// type-metadata cache.
type TypeMetadataCodec = codecAny

// codecAny is the shape both entity and type-metadata codecs share.
type codecAny interface {
	Serialize(v any) ([]byte, error)
	Deserialize(b []byte) (any, error)
}
