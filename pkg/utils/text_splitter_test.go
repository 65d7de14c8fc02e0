package utils

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{
			name:       "short text fits in one chunk",
			text:       "hello world",
			chunkSize:  100,
			overlap:    10,
			wantChunks: 1,
		},
		{
			name:       "exact chunk size stays whole",
			text:       strings.Repeat("a", 50),
			chunkSize:  50,
			overlap:    5,
			wantChunks: 1,
		},
		{
			name:       "long text splits with overlap",
			text:       strings.Repeat("a", 100),
			chunkSize:  50,
			overlap:    10,
			wantChunks: 3, // steps of 40: [0,50) [40,90) [80,100)
		},
		{
			name:       "overlap >= chunk size falls back to plain stepping",
			text:       strings.Repeat("a", 100),
			chunkSize:  50,
			overlap:    50,
			wantChunks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, tt.chunkSize, tt.overlap)
			if len(chunks) != tt.wantChunks {
				t.Fatalf("got %d chunks, want %d", len(chunks), tt.wantChunks)
			}
			for i, c := range chunks {
				if len([]rune(c)) > tt.chunkSize {
					t.Errorf("chunk %d length %d exceeds chunk size %d", i, len([]rune(c)), tt.chunkSize)
				}
			}
		})
	}
}

func TestSplitTextOverlapPreservesBoundary(t *testing.T) {
	text := "abcdefghij" // 10 runes
	chunks := SplitText(text, 6, 2)
	// step 4: [0,6) [4,10)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0] != "abcdef" || chunks[1] != "efghij" {
		t.Errorf("chunks = %q", chunks)
	}
	// The tail of chunk 0 reappears at the head of chunk 1
	if !strings.HasPrefix(chunks[1], chunks[0][4:]) {
		t.Errorf("overlap missing between %q and %q", chunks[0], chunks[1])
	}
}

func TestSplitTextMultibyte(t *testing.T) {
	text := strings.Repeat("é", 30)
	chunks := SplitText(text, 10, 2)
	for i, c := range chunks {
		for _, r := range c {
			if r != 'é' {
				t.Fatalf("chunk %d corrupted multibyte rune: %q", i, c)
			}
		}
	}
}
