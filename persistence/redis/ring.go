package redis

import (
	"github.com/buraksezer/consistent"
	"github.com/spaolacci/murmur3"
)

type hasher struct{}

func (hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type member string

func (m member) String() string {
	return string(m)
}

// ring spreads queue keys over a fixed number of partitions so jobs of one
// flow always land in the same redis list.
type ring struct {
	partitionCount int
	hring          *consistent.Consistent
}

func newRing(partitionCount int) *ring {
	if partitionCount <= 0 {
		partitionCount = 1
	}
	cfg := consistent.Config{
		PartitionCount:    partitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            hasher{},
	}
	return &ring{
		partitionCount: partitionCount,
		hring:          consistent.New([]consistent.Member{member("local")}, cfg),
	}
}

func (r *ring) partition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}
