package partition

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/tripbench/tripbench/pkg/types"
)

// HashRouter scatters rows across a fixed number of shards using
// murmur3 on the row ordinal. Routing by ordinal rather than by any
// column value keeps shard sizes near-uniform regardless of how skewed
// the data is, which is what the partitioned engine wants: every shard
// does comparable work.
type HashRouter struct {
	shards int
}

// NewHashRouter creates a router for the given shard count.
func NewHashRouter(shards int) (*HashRouter, error) {
	if shards < 1 {
		return nil, fmt.Errorf("routing: shard count must be at least 1, got %d", shards)
	}
	return &HashRouter{shards: shards}, nil
}

// Shards returns the configured shard count.
func (r *HashRouter) Shards() int {
	return r.shards
}

// Shard computes the shard index for a row ordinal.
func (r *HashRouter) Shard(ordinal int64) int {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ordinal))
	return int(murmur3.Sum64(buf[:]) % uint64(r.shards))
}

// Split groups trips by shard, preserving relative row order within each
// shard. Shards may come back empty for tiny inputs.
func (r *HashRouter) Split(trips []types.Trip) [][]types.Trip {
	groups := make([][]types.Trip, r.shards)
	perShard := len(trips)/r.shards + 1
	for i := range groups {
		groups[i] = make([]types.Trip, 0, perShard)
	}
	for i, trip := range trips {
		shard := r.Shard(int64(i))
		groups[shard] = append(groups[shard], trip)
	}
	return groups
}
