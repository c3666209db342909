package bucketing

import (
	"fmt"
	"testing"
)

func TestBucketDeterministic(t *testing.T) {
	first := Bucket("user-42", "pricing_page")
	for i := 0; i < 100; i++ {
		if got := Bucket("user-42", "pricing_page"); got != first {
			t.Fatalf("bucket changed between calls: %d vs %d", got, first)
		}
	}
}

func TestBucketRange(t *testing.T) {
	for i := 0; i < 10000; i++ {
		bucket := Bucket(fmt.Sprintf("user-%d", i), "pricing_page")
		if bucket < 0 || bucket >= BucketCount {
			t.Fatalf("bucket %d out of [0,%d)", bucket, BucketCount)
		}
	}
}

func TestBucketAcceptsEmptyInputs(t *testing.T) {
	bucket := Bucket("", "")
	if bucket < 0 || bucket >= BucketCount {
		t.Fatalf("bucket %d out of range for empty inputs", bucket)
	}
	if Bucket("", "") != bucket {
		t.Fatal("empty inputs not deterministic")
	}
}

func TestBucketIndependentAcrossExperiments(t *testing.T) {
	// Not every user differs, but across a population the experiments must not
	// produce identical bucket sequences.
	same := 0
	const n = 1000
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("user-%d", i)
		if Bucket(id, "exp_a") == Bucket(id, "exp_b") {
			same++
		}
	}
	// ~1% expected collisions for independent uniform hashes.
	if same > n/10 {
		t.Fatalf("experiments correlated: %d/%d identical buckets", same, n)
	}
}

func TestCheckUniformity(t *testing.T) {
	if err := CheckUniformity("pricing_page", 100000, 0.02); err != nil {
		t.Fatalf("distribution not uniform: %v", err)
	}
}

func TestCheckUniformityRejectsBadSampleSize(t *testing.T) {
	if err := CheckUniformity("pricing_page", 0, 0.02); err == nil {
		t.Fatal("expected error for zero sample size")
	}
}
