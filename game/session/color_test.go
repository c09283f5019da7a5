package session

import "testing"

func TestAllocateColor(t *testing.T) {
	t.Run("first free entry", func(t *testing.T) {
		used := map[string]bool{palette[0]: true, palette[1]: true}
		got := allocateColor(func(c string) bool { return used[c] })
		if got != palette[2] {
			t.Errorf("Expected %s, got %s", palette[2], got)
		}
	})

	t.Run("nothing in use", func(t *testing.T) {
		got := allocateColor(func(string) bool { return false })
		if got != palette[0] {
			t.Errorf("Expected first palette entry %s, got %s", palette[0], got)
		}
	})

	t.Run("overflow reuses a palette entry", func(t *testing.T) {
		got := allocateColor(func(string) bool { return true })
		found := false
		for _, c := range palette {
			if c == got {
				found = true
			}
		}
		if !found {
			t.Errorf("Overflow color %s is not from the palette", got)
		}
	})

	t.Run("palette has at least 8 distinct colors", func(t *testing.T) {
		if len(palette) < 8 {
			t.Fatalf("Expected at least 8 palette entries, got %d", len(palette))
		}
		seen := make(map[string]bool)
		for _, c := range palette {
			if seen[c] {
				t.Errorf("Duplicate palette entry %s", c)
			}
			seen[c] = true
		}
	})
}
