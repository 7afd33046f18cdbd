package repository

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// newID mints a lexically sortable record identifier.
func newID() string {
	return ulid.Make().String()
}

func validID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
