package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTimeIn(s, time.UTC)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTimeIn(strconv.FormatInt(ts, 10), nil)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeUnixMillis(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got, ok := ParseTimeIn(strconv.FormatInt(ts.UnixMilli(), 10), nil)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(ts) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeInLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	got, ok := ParseTimeIn("2024-01-05", loc)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Hour() != 5 {
		t.Fatalf("expected local midnight, got %v", got.UTC())
	}
	if _, ok := ParseTimeIn("Jan 5, 2024", loc); !ok {
		t.Fatalf("expected text layout to parse")
	}
}

func TestParseTimeRejects(t *testing.T) {
	for _, s := range []string{"", "   ", "not a date", "-5", "0"} {
		if _, ok := ParseTimeIn(s, time.UTC); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, ,b ,c,")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected split %v", got)
	}
	if SplitCSV("  ") != nil {
		t.Fatalf("expected nil for blank input")
	}
}

func TestTruncate(t *testing.T) {
	if Truncate("abcdef", 3) != "abc" {
		t.Fatalf("expected truncation")
	}
	if Truncate("ab", 3) != "ab" {
		t.Fatalf("expected short string unchanged")
	}
}
