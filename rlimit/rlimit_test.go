package rlimit

import (
	"os"
	"testing"
)

func TestParseNameRoundTrip(t *testing.T) {
	for _, k := range All() {
		name := Name(k)
		if name == "" {
			t.Fatalf("Name(%d) returned empty string", k)
		}
		got, ok := Parse(name)
		if !ok {
			t.Fatalf("Parse(%q) failed to find a match", name)
		}
		if got != k {
			t.Errorf("Parse(Name(%d)) = %d, want %d", k, got, k)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, ok := Parse("RLIMIT_NONSENSE"); ok {
		t.Error("Parse(RLIMIT_NONSENSE) should fail")
	}
}

func TestGranularityDefaults(t *testing.T) {
	page := uint64(os.Getpagesize())
	tests := []struct {
		kind ResourceKind
		want uint64
	}{
		{CPU, 1},
		{FSIZE, 1},
		{DATA, page},
		{STACK, page},
		{CORE, 0},
		{RSS, page},
		{NOFILE, 1},
		{AS, page},
		{NPROC, 0},
		{MEMLOCK, page},
		{LOCKS, 1},
		{SIGPENDING, 1},
		{MSGQUEUE, 1},
		{NICE, 1},
		{RTPRIO, 1},
		{RTTIME, 1},
	}

	for _, tt := range tests {
		t.Run(Name(tt.kind), func(t *testing.T) {
			if got := Granularity(tt.kind); got != tt.want {
				t.Errorf("Granularity(%s) = %d, want %d", Name(tt.kind), got, tt.want)
			}
		})
	}
}

func TestSearchableExcludesZeroGranularity(t *testing.T) {
	searchable := Searchable()
	for _, k := range searchable {
		if Granularity(k) == 0 {
			t.Errorf("Searchable() included %s with granularity 0", Name(k))
		}
	}

	found := make(map[ResourceKind]bool)
	for _, k := range searchable {
		found[k] = true
	}
	if found[CORE] {
		t.Error("Searchable() should not include CORE")
	}
	if found[NPROC] {
		t.Error("Searchable() should not include NPROC")
	}
	if len(searchable) != int(numKinds)-2 {
		t.Errorf("Searchable() returned %d kinds, want %d", len(searchable), int(numKinds)-2)
	}
}

func TestAllLength(t *testing.T) {
	if len(All()) != int(numKinds) {
		t.Errorf("All() returned %d kinds, want %d", len(All()), int(numKinds))
	}
}
