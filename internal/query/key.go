package query

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// CacheKey hashes the rendered query. Entries also store the full rendering so
// a hash collision is detected on read.
func CacheKey(q Query) string {
	return q.Name + ":" + strconv.FormatUint(xxhash.Sum64String(q.Rendered()), 16)
}
