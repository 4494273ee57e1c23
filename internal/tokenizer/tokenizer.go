package tokenizer

// Encoder is the symbol table the models consume.
type Encoder interface {
	// Encode converts symbols to indices.
	Encode(symbols []string) ([]int, error)

	// Decode converts indices back to symbols.
	Decode(indices []int) ([]string, error)

	// Size returns the number of known symbols.
	Size() int
}

// Segmenter splits text into symbols and joins them back.
//
// For every text s, Join(Split(s)) == s.
type Segmenter interface {
	// Split converts text to symbols.
	Split(text string) ([]string, error)

	// Join converts symbols back to text.
	Join(symbols []string) string

	// Name returns the segmenter name.
	Name() string
}
