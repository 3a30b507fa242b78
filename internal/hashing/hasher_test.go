package hashing

import "testing"

func TestAggregateOrderInvariant(t *testing.T) {
	a := []FileHash{1, 2, 3, 4, 5}
	b := []FileHash{5, 4, 3, 2, 1}
	if Aggregate(a) != Aggregate(b) {
		t.Error("aggregate depends on input order")
	}
}

func TestAggregateDistinguishesSets(t *testing.T) {
	a := []FileHash{1, 2, 3}
	b := []FileHash{1, 2, 3, 4}
	if Aggregate(a) == Aggregate(b) {
		t.Error("aggregate did not change when a file was added")
	}
}

func TestAggregateEmpty(t *testing.T) {
	// Aggregating zero hashes must not panic; the enumerator is what
	// enforces the NoFilesMatched rule upstream of this function.
	_ = Aggregate(nil)
}

func TestFormatDigest(t *testing.T) {
	if got := FormatDigest(0); got != "0000000000000000" {
		t.Errorf("FormatDigest(0) = %q, want 16 zero digits", got)
	}
	if len(FormatDigest(0xdeadbeef)) != 16 {
		t.Error("FormatDigest did not produce 16 hex digits")
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile("/nonexistent/path/does/not/exist"); err == nil {
		t.Error("hashing a nonexistent file succeeded unexpectedly")
	} else if _, ok := err.(*ReadFileError); !ok {
		t.Errorf("expected *ReadFileError, got %T", err)
	}
}
