package points

import "strings"

// keys derives store key names for one key prefix.
type keys struct {
	prefix string
}

// collectionPrefix is the key prefix every point hash of a collection shares.
func (k keys) collectionPrefix(collection string) string {
	return k.prefix + collection + ":"
}

func (k keys) index(collection string) string {
	return k.collectionPrefix(collection) + "idx"
}

func (k keys) point(collection, id string) string {
	return k.collectionPrefix(collection) + id
}

// pointID recovers the point ID from a hash key.
func (k keys) pointID(collection, key string) string {
	return strings.TrimPrefix(key, k.collectionPrefix(collection))
}
