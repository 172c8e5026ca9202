package storage

import "testing"

func TestErrKeyNotFoundIsDistinctError(t *testing.T) {
	if ErrKeyNotFound == nil {
		t.Fatal("ErrKeyNotFound must not be nil")
	}
	if ErrKeyNotFound.Error() == "" {
		t.Fatal("ErrKeyNotFound must have a non-empty message")
	}
}

func TestStoreStatsZeroValue(t *testing.T) {
	var s StoreStats
	if s.Keys != 0 || s.Bytes != 0 {
		t.Fatalf("zero value StoreStats should be all-zero, got %+v", s)
	}
}
