package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVisitedBucketsFindsOnlyActiveBuckets(t *testing.T) {
	// 4 buckets, 2 slots each; only buckets 1 and 3 have any nonzero entry.
	e := NewRegretEntries(2, 8)
	e.data[1*2+0] = 5
	e.data[3*2+1] = -2

	require.Equal(t, []int{1, 3}, e.VisitedBuckets(4))
}

func TestBuildBucketIndexFromRegretsRoundTrips(t *testing.T) {
	e := NewRegretEntries(1, 6)
	for _, b := range []int{0, 2, 5} {
		e.data[b] = 1
	}

	idx, err := BuildBucketIndexFromRegrets(e, 6)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	for _, b := range []int{0, 2, 5} {
		pos := idx.Index(b)
		require.GreaterOrEqual(t, pos, 0)
		require.Less(t, pos, idx.Len())
	}
	require.Equal(t, -1, idx.Index(1))
	require.Equal(t, -1, idx.Index(3))
	require.Equal(t, -1, idx.Index(4))
}
