package store

import (
	"fmt"
	"testing"
)

func TestSourceBlocklist_Basic(t *testing.T) {
	bl := NewSourceBlocklist(100, 0.001)

	if bl.Has("https://example.com/a.mp3") {
		t.Error("Empty blocklist should not contain any source")
	}

	if bl.Size() != 0 {
		t.Errorf("Empty blocklist size should be 0, got %d", bl.Size())
	}

	bl.Add("https://example.com/a.mp3")
	if !bl.Has("https://example.com/a.mp3") {
		t.Error("Blocklist should contain source after adding")
	}

	// Duplicate addition
	bl.Add("https://example.com/a.mp3")
	if bl.Size() != 1 {
		t.Errorf("Blocklist size should still be 1 after adding duplicate, got %d", bl.Size())
	}

	bl.Remove("https://example.com/a.mp3")
	if bl.Has("https://example.com/a.mp3") {
		t.Error("Blocklist should not contain source after removal")
	}
}

func TestSourceBlocklist_Normalization(t *testing.T) {
	bl := NewSourceBlocklist(100, 0.001)

	bl.Add("HTTPS://Example.COM/Track.mp3#t=10")

	tests := []struct {
		name    string
		source  string
		blocked bool
	}{
		{"same url", "https://example.com/Track.mp3", true},
		{"with fragment", "https://example.com/Track.mp3#other", true},
		{"surrounding spaces", "  https://example.com/Track.mp3 ", true},
		{"path is case sensitive", "https://example.com/track.mp3", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bl.Has(tt.source); got != tt.blocked {
				t.Errorf("Has(%q) = %v, want %v", tt.source, got, tt.blocked)
			}
		})
	}
}

func TestSourceBlocklist_IgnoresEmpty(t *testing.T) {
	bl := NewSourceBlocklist(10, 0.001)
	bl.Add("")
	bl.Add("   ")

	if bl.Size() != 0 {
		t.Errorf("Blocklist size should be 0 after adding blanks, got %d", bl.Size())
	}
}

func TestSourceBlocklist_Clear(t *testing.T) {
	bl := NewSourceBlocklist(100, 0.001)

	sources := []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"}
	for _, s := range sources {
		bl.Add(s)
	}

	bl.Clear()

	if bl.Size() != 0 {
		t.Errorf("Blocklist size should be 0 after clear, got %d", bl.Size())
	}
	for _, s := range sources {
		if bl.Has(s) {
			t.Errorf("Blocklist should not contain %s after clear", s)
		}
	}
}

func TestSourceBlocklist_MaxCapacity(t *testing.T) {
	capacity := 5
	bl := NewSourceBlocklist(capacity, 0.001)

	for i := 0; i < capacity*3; i++ {
		bl.Add(fmt.Sprintf("https://example.com/%d.mp3", i))
	}

	if bl.Size() > capacity {
		t.Errorf("Blocklist size should not exceed %d, got %d", capacity, bl.Size())
	}

	for i := capacity * 2; i < capacity*3; i++ {
		source := fmt.Sprintf("https://example.com/%d.mp3", i)
		if !bl.Has(source) {
			t.Errorf("Blocklist should contain recent source %s", source)
		}
	}
	for i := 0; i < capacity; i++ {
		source := fmt.Sprintf("https://example.com/%d.mp3", i)
		if bl.Has(source) {
			t.Errorf("Blocklist should have evicted old source %s", source)
		}
	}
}

func TestSourceBlocklist_BloomFilterEffectiveness(t *testing.T) {
	bl := NewSourceBlocklist(1000, 0.001)

	numSources := 500
	for i := 0; i < numSources; i++ {
		bl.Add(fmt.Sprintf("https://files.example/%d.mp3", i))
	}

	for i := 0; i < numSources; i++ {
		source := fmt.Sprintf("https://files.example/%d.mp3", i)
		if !bl.Has(source) {
			t.Errorf("Blocklist should contain %s", source)
		}
	}

	// The LRU is authoritative, so unknown sources are never reported.
	for i := 0; i < 1000; i++ {
		source := fmt.Sprintf("https://other.example/%d.mp3", i)
		if bl.Has(source) {
			t.Errorf("Blocklist should not contain %s", source)
		}
	}
}

func BenchmarkSourceBlocklist_Has(b *testing.B) {
	bl := NewSourceBlocklist(10000, 0.001)

	for i := 0; i < 1000; i++ {
		bl.Add(fmt.Sprintf("https://files.example/%d.mp3", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bl.Has(fmt.Sprintf("https://files.example/%d.mp3", i%1000))
	}
}
