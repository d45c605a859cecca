package repositories

import "github.com/google/uuid"

// DefaultBatchChunkSize is the backend's multi-key query limit
const DefaultBatchChunkSize = 1000

// ChunkUUIDs splits a key set into chunks of at most size keys. A batch
// loader issues one multi-key query per chunk and merges the results.
func ChunkUUIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	if size <= 0 {
		size = DefaultBatchChunkSize
	}
	if len(ids) == 0 {
		return nil
	}

	chunks := make([][]uuid.UUID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
