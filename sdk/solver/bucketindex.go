package solver

import (
	"encoding/binary"

	"github.com/opencoff/go-chd"
)

// BucketIndex is a minimal perfect hash from a round's visited buckets to a
// dense [0, n) index, built once after loading a strategy. The Null card
// abstraction allocates B_r = deck_size^k buckets per round, but a given
// betting tree only ever visits the subset actually dealt during training
// plus whatever a player-time hand can reach; this index lets a summary or
// export tool iterate "buckets with data" densely instead of scanning the
// full allocated range.
type BucketIndex struct {
	hash    *chd.CHD
	buckets []int
}

// BuildBucketIndex constructs the index from the distinct bucket values
// observed for one round (e.g. collected while walking a loaded Player's
// tree for diagnostic or export purposes).
func BuildBucketIndex(buckets []int) (*BucketIndex, error) {
	keys := make([][]byte, len(buckets))
	for i, b := range buckets {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(b))
		keys[i] = buf[:]
	}
	builder, err := chd.New(0.5, 32)
	if err != nil {
		return nil, err
	}
	h, err := builder.Build(keys)
	if err != nil {
		return nil, err
	}
	dense := make([]int, len(buckets))
	copy(dense, buckets)
	return &BucketIndex{hash: h, buckets: dense}, nil
}

// Index returns the dense position of bucket within the index, or -1 if it
// was not part of the observed set the index was built from.
func (b *BucketIndex) Index(bucket int) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(bucket))
	idx := int(b.hash.Find(buf[:]))
	if idx < 0 || idx >= len(b.buckets) || b.buckets[idx] != bucket {
		return -1
	}
	return idx
}

// Len is the number of distinct buckets in the index.
func (b *BucketIndex) Len() int { return len(b.buckets) }

// BuildBucketIndexFromRegrets scans a round's regret store for buckets with
// recorded activity and builds a dense index over them. This is the
// "inspect" subcommand's route into BucketIndex: a finished run's Null
// abstraction rounds allocate far more buckets than any single run visits,
// so reporting the visited subset is more useful than the raw B_r bound.
func BuildBucketIndexFromRegrets(e *RegretEntries, numBuckets int) (*BucketIndex, error) {
	return BuildBucketIndex(e.VisitedBuckets(numBuckets))
}
