// Package store defines the durable key/value contract shared by incident
// actors, workflow runs, and the registry. Values are JSON documents
// scoped by a partition (one partition per incident, plus reserved
// partitions for workflow and registry state). Each Put is atomic and
// durable before it returns.
package store

import "context"

// Store is the persistence interface for partitioned key/value state.
type Store interface {
	// Get retrieves the value for (partition, key). The second return is
	// false when the key has never been written.
	Get(ctx context.Context, partition, key string) ([]byte, bool, error)

	// Put writes the value for (partition, key), replacing any prior value.
	Put(ctx context.Context, partition, key string, value []byte) error

	// List returns all values in a partition in insertion order.
	List(ctx context.Context, partition string) ([][]byte, error)
}
