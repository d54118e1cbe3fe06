package httprange_test

import (
	"errors"
	"testing"

	"streamvault/internal/httprange"
)

func TestParse(t *testing.T) {
	t.Parallel()

	br, err := httprange.Parse("bytes=0-1023", 4096)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if br.Start != 0 || br.End != 1023 {
		t.Fatalf("Parse() = %#v, want start=0 end=1023", br)
	}
	if br.Length() != 1024 {
		t.Fatalf("Length() = %d, want 1024", br.Length())
	}
	if got := br.ContentRange(4096); got != "bytes 0-1023/4096" {
		t.Fatalf("ContentRange() = %q", got)
	}
}

func TestParseNoHeader(t *testing.T) {
	t.Parallel()

	br, err := httprange.Parse("", 100)
	if err != nil || br != nil {
		t.Fatalf("Parse(\"\") = %#v, %v, want nil, nil", br, err)
	}
}

func TestParseOpenEndedDefaultsToEOF(t *testing.T) {
	t.Parallel()

	br, err := httprange.Parse("bytes=500-", 1000)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if br.Start != 500 || br.End != 999 {
		t.Fatalf("Parse() = %#v, want start=500 end=999", br)
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	for _, header := range []string{
		"items=0-1",
		"bytes=0-1,2-3",
		"bytes=abc-10",
		"bytes=10-def",
		"bytes=-500",
		"bytes=10",
	} {
		_, err := httprange.Parse(header, 1000)
		if !errors.Is(err, httprange.ErrMalformed) {
			t.Fatalf("Parse(%q) error = %v, want ErrMalformed", header, err)
		}
	}
}

func TestParseUnsatisfiable(t *testing.T) {
	t.Parallel()

	for _, header := range []string{
		"bytes=1000-1000", // start at size
		"bytes=0-1000",    // end at size
		"bytes=2000-",     // start past size
		"bytes=500-100",   // inverted
	} {
		_, err := httprange.Parse(header, 1000)
		if !errors.Is(err, httprange.ErrUnsatisfiable) {
			t.Fatalf("Parse(%q) error = %v, want ErrUnsatisfiable", header, err)
		}
	}
}

func TestParseLastByte(t *testing.T) {
	t.Parallel()

	br, err := httprange.Parse("bytes=999-999", 1000)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if br.Start != 999 || br.End != 999 || br.Length() != 1 {
		t.Fatalf("Parse() = %#v, want the single last byte", br)
	}
}
