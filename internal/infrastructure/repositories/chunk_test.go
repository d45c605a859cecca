package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestChunkUUIDs(t *testing.T) {
	ids := makeIDs(2500)

	chunks := ChunkUUIDs(ids, 1000)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 500)

	// order preserved across chunk boundaries
	assert.Equal(t, ids[0], chunks[0][0])
	assert.Equal(t, ids[999], chunks[0][999])
	assert.Equal(t, ids[1000], chunks[1][0])
	assert.Equal(t, ids[2499], chunks[2][499])
}

func TestChunkUUIDs_ExactMultiple(t *testing.T) {
	chunks := ChunkUUIDs(makeIDs(2000), 1000)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
}

func TestChunkUUIDs_SmallerThanChunk(t *testing.T) {
	chunks := ChunkUUIDs(makeIDs(3), 1000)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 3)
}

func TestChunkUUIDs_Empty(t *testing.T) {
	assert.Nil(t, ChunkUUIDs(nil, 1000))
	assert.Nil(t, ChunkUUIDs([]uuid.UUID{}, 1000))
}

func TestChunkUUIDs_NonPositiveSizeUsesDefault(t *testing.T) {
	chunks := ChunkUUIDs(makeIDs(1001), 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], DefaultBatchChunkSize)
	assert.Len(t, chunks[1], 1)
}
