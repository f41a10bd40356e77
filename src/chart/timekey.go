package chart

import (
	"sort"
	"time"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// BucketKey formats a timestamp as the canonical axis key at the given
// granularity. Pure; never fails.
func BucketKey(t time.Time, granularity models.TimeGranularity) string {
	return granularity.Truncate(t).Format(granularity.BucketLayout())
}

// ResolveToAxis maps an arbitrary event timestamp onto the bar axis. An
// exact bucket match wins; otherwise the greatest bucket not after the
// truncated input is chosen, so a trade executed mid-bucket lands on the
// bar it belongs to instead of being dropped. Returns -1 when the axis is
// empty or the timestamp predates the first bucket.
func ResolveToAxis(t time.Time, axis []time.Time, granularity models.TimeGranularity) int {
	if len(axis) == 0 {
		return -1
	}

	target := granularity.Truncate(t)

	// First axis index whose bucket is strictly after the target; the
	// index before it is the nearest-not-after bucket.
	idx := sort.Search(len(axis), func(i int) bool {
		return granularity.Truncate(axis[i]).After(target)
	})

	return idx - 1
}
