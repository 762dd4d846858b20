package partition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// Meta is the compressed sidecar written next to every partition file.
// It lets the engine answer per-partition stats questions (row count,
// hour range) without opening the SQLite file.
type Meta struct {
	PartitionID string `json:"partition_id"`
	Shard       int    `json:"shard"`
	RowCount    int64  `json:"row_count"`
	SizeBytes   int64  `json:"size_bytes"`
	MinHour     int    `json:"min_hour"`
	MaxHour     int    `json:"max_hour"`
	CreatedAt   int64  `json:"created_at"`
}

// metaExt is the sidecar file extension: JSON compressed with Snappy.
const metaExt = ".meta.snappy"

// WriteMeta writes the sidecar for a partition and returns its path.
func WriteMeta(dir string, info *Info) (string, error) {
	meta := Meta{
		PartitionID: info.PartitionID,
		Shard:       info.Shard,
		RowCount:    info.RowCount,
		SizeBytes:   info.SizeBytes,
		MinHour:     info.MinHour,
		MaxHour:     info.MaxHour,
		CreatedAt:   info.CreatedAt.UnixNano(),
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("partition: failed to marshal metadata: %w", err)
	}

	path := filepath.Join(dir, info.PartitionID+metaExt)
	if err := os.WriteFile(path, snappy.Encode(nil, raw), 0644); err != nil {
		return "", fmt.Errorf("partition: failed to write metadata sidecar: %w", err)
	}
	return path, nil
}

// ReadMeta reads and decompresses a partition sidecar.
func ReadMeta(path string) (*Meta, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to read metadata sidecar: %w", err)
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to decompress metadata sidecar: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("partition: failed to unmarshal metadata sidecar: %w", err)
	}
	return &meta, nil
}
