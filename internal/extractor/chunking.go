package extractor

// ChunkingConfig bounds how much text a single model call sees. Sizes are in
// characters (runes). MaxChunks <= 0 means no cap.
type ChunkingConfig struct {
	MaxInputChars     int `json:"max_input_chars"`
	ChunkOverlapChars int `json:"chunk_overlap_chars"`
	MaxChunks         int `json:"max_chunks"`
}

func DefaultChunking() ChunkingConfig {
	return ChunkingConfig{
		MaxInputChars:     12000,
		ChunkOverlapChars: 200,
		MaxChunks:         8,
	}
}

// Window is a contiguous slice of the input, [Start, End) in rune offsets.
type Window struct {
	Index int
	Start int
	End   int
	Text  string
}

// SplitWindows partitions text left to right into overlapping windows. Each
// window after the first starts overlap characters before the previous end,
// but always at least one character after the previous start. Splitting stops
// at the end of the text or once MaxChunks windows exist; in the latter case
// the tail of the text is not covered.
func SplitWindows(text string, cfg ChunkingConfig) []Window {
	runes := []rune(text)
	n := len(runes)
	size := cfg.MaxInputChars
	if size <= 0 || n <= size {
		return []Window{{Index: 0, Start: 0, End: n, Text: text}}
	}

	var windows []Window
	start := 0
	for start < n && (cfg.MaxChunks <= 0 || len(windows) < cfg.MaxChunks) {
		end := start + size
		if end > n {
			end = n
		}
		windows = append(windows, Window{
			Index: len(windows),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if end == n {
			break
		}

		next := end - cfg.ChunkOverlapChars
		if next < start+1 {
			next = start + 1
		}
		start = next
	}
	return windows
}

// Covered reports the number of leading runes that windows reach.
func Covered(windows []Window) int {
	if len(windows) == 0 {
		return 0
	}
	return windows[len(windows)-1].End
}
