package conditional_test

import (
	"testing"
	"time"

	"streamvault/internal/conditional"
)

func TestNotModified(t *testing.T) {
	t.Parallel()

	lastModified := time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name            string
		ifNoneMatch     string
		ifModifiedSince string
		want            bool
	}{
		{name: "no validators", want: false},
		{name: "etag match", ifNoneMatch: "abc123", want: true},
		{name: "etag mismatch", ifNoneMatch: "stale", want: false},
		{name: "modified since equal", ifModifiedSince: "Sat, 14 Mar 2026 10:30:00 GMT", want: true},
		{name: "modified since later", ifModifiedSince: "Sat, 14 Mar 2026 11:00:00 GMT", want: true},
		{name: "modified since earlier", ifModifiedSince: "Sat, 14 Mar 2026 09:00:00 GMT", want: false},
		{name: "unparseable date ignored", ifModifiedSince: "yesterday", want: false},
		{name: "etag mismatch but date current", ifNoneMatch: "stale", ifModifiedSince: "Sat, 14 Mar 2026 10:30:00 GMT", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := conditional.NotModified(tt.ifNoneMatch, tt.ifModifiedSince, "abc123", lastModified)
			if got != tt.want {
				t.Fatalf("NotModified() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotModifiedSubSecondPrecision(t *testing.T) {
	t.Parallel()

	// Stored mtimes carry nanoseconds; the header only carries seconds. A
	// client echoing back the second-truncated value must still get a 304.
	lastModified := time.Date(2026, time.March, 14, 10, 30, 0, 987654321, time.UTC)
	if !conditional.NotModified("", "Sat, 14 Mar 2026 10:30:00 GMT", "e", lastModified) {
		t.Fatalf("second-truncated echo was not treated as unmodified")
	}
}
