package session

import "testing"

func TestGenerateCode(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code := GenerateCode()
			if len(code) != codeLength {
				t.Fatalf("Expected %d-character code, got %q", codeLength, code)
			}
			for _, c := range code {
				if c < '0' || c > '9' {
					t.Fatalf("Expected numeric code, got %q", code)
				}
			}
		}
	})

	t.Run("spread", func(t *testing.T) {
		// With a million-code space, 50 draws colliding on a single value
		// would indicate a broken generator.
		seen := make(map[string]int)
		for i := 0; i < 50; i++ {
			seen[GenerateCode()]++
		}
		for code, n := range seen {
			if n > 2 {
				t.Errorf("Code %s generated %d times in 50 draws", code, n)
			}
		}
	})
}
