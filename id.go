package docrag

import (
	"time"

	"github.com/google/uuid"
)

// chunkNamespace scopes content-addressed chunk IDs.
var chunkNamespace = uuid.MustParse("5b0c7f1e-3d5a-4c52-9a0e-6f7d2b8e41c9")

// ChunkID returns the deterministic identifier of a chunk: a name-based
// (MD5) UUID over source + "::" + text. The same (source, text) pair always
// yields the same ID, so re-ingesting a file upserts instead of duplicating.
func ChunkID(source, text string) string {
	return uuid.NewMD5(chunkNamespace, []byte(source+"::"+text)).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
