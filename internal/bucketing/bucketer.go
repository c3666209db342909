package bucketing

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// BucketCount is the size of the hash space assignments are mapped onto.
const BucketCount = 100

// Bucket maps a user/experiment pair onto [0,100). The mapping is pure: the
// same pair always lands in the same bucket, on any instance, with no shared
// state. Different experiments hash independently, so one user's bucket in
// experiment A says nothing about their bucket in experiment B.
func Bucket(userID, experimentName string) int {
	sum := xxhash.Sum64String(userID + ":" + experimentName)
	return int(sum % BucketCount)
}

// CheckUniformity hashes n synthetic user IDs for the experiment and verifies
// every decile holds its expected 10% share within tolerance (a fraction,
// e.g. 0.02 for ±2 percentage points).
func CheckUniformity(experimentName string, n int, tolerance float64) error {
	if n <= 0 {
		return fmt.Errorf("sample size must be positive, got %d", n)
	}

	var deciles [10]int
	for i := 0; i < n; i++ {
		bucket := Bucket(fmt.Sprintf("synthetic-user-%d", i), experimentName)
		deciles[bucket/10]++
	}

	expected := 0.1
	for decile, count := range deciles {
		share := float64(count) / float64(n)
		if diff := share - expected; diff > tolerance || diff < -tolerance {
			return fmt.Errorf("decile %d holds %.4f of assignments, outside %.4f±%.4f", decile, share, expected, tolerance)
		}
	}
	return nil
}
