package tokenizer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Special symbols separating the input from the output of a training pair.
const (
	StopInput   = "stop-input"
	StartOutput = "start-output"
)

var (
	// ErrUnknownSymbol is returned when encoding a symbol outside the table.
	ErrUnknownSymbol = errors.New("unrecognized symbol")

	// ErrUnknownIndex is returned when decoding an index outside the table.
	ErrUnknownIndex = errors.New("unrecognized index")
)

// Vocabulary maps symbols to indices 0..Size()-1 in first-seen order.
type Vocabulary struct {
	symbols  []string
	index    map[string]int
	specials map[int]bool
}

// NewVocabulary builds a vocabulary from every unique symbol of sequences,
// in the order they first appear.
func NewVocabulary(sequences ...[]string) *Vocabulary {
	v := &Vocabulary{
		index:    make(map[string]int),
		specials: make(map[int]bool),
	}
	for _, seq := range sequences {
		for _, s := range seq {
			v.add(s)
		}
	}
	return v
}

// FromAllPrintable builds a vocabulary of extra followed by the printable
// ASCII characters 32..126. With no extra symbols a newline is used.
func FromAllPrintable(extra ...string) *Vocabulary {
	if len(extra) == 0 {
		extra = []string{"\n"}
	}
	symbols := append([]string(nil), extra...)
	for c := byte(32); c <= 126; c++ {
		symbols = append(symbols, string(rune(c)))
	}
	return NewVocabulary(symbols)
}

func (v *Vocabulary) add(s string) int {
	if i, ok := v.index[s]; ok {
		return i
	}
	i := len(v.symbols)
	v.index[s] = i
	v.symbols = append(v.symbols, s)
	return i
}

// AddSpecial appends special symbols. Symbols already present are marked
// special in place.
func (v *Vocabulary) AddSpecial(symbols ...string) {
	for _, s := range symbols {
		v.specials[v.add(s)] = true
	}
}

// AddInputOutput adds the StopInput and StartOutput special symbols.
func (v *Vocabulary) AddInputOutput() {
	v.AddSpecial(StopInput, StartOutput)
}

// HasInputOutput reports whether the input/output special symbols exist.
func (v *Vocabulary) HasInputOutput() bool {
	_, stop := v.index[StopInput]
	_, start := v.index[StartOutput]
	return stop && start
}

// Size returns the number of symbols.
func (v *Vocabulary) Size() int {
	return len(v.symbols)
}

// Symbols returns a copy of the symbol table in index order.
func (v *Vocabulary) Symbols() []string {
	return append([]string(nil), v.symbols...)
}

// IsSpecial reports whether index names a special symbol.
func (v *Vocabulary) IsSpecial(index int) bool {
	return v.specials[index]
}

// Index returns the index of symbol.
func (v *Vocabulary) Index(symbol string) (int, bool) {
	i, ok := v.index[symbol]
	return i, ok
}

// Encode converts symbols to indices.
func (v *Vocabulary) Encode(symbols []string) ([]int, error) {
	out := make([]int, len(symbols))
	for i, s := range symbols {
		idx, ok := v.index[s]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownSymbol, s)
		}
		out[i] = idx
	}
	return out, nil
}

// EncodeInputOutput encodes input followed by StopInput and StartOutput, and
// then output when it is non-nil.
func (v *Vocabulary) EncodeInputOutput(input, output []string) ([]int, error) {
	if !v.HasInputOutput() {
		return nil, fmt.Errorf("%w %q: vocabulary has no input/output symbols", ErrUnknownSymbol, StopInput)
	}

	symbols := make([]string, 0, len(input)+2+len(output))
	symbols = append(symbols, input...)
	symbols = append(symbols, StopInput, StartOutput)
	symbols = append(symbols, output...)
	return v.Encode(symbols)
}

// Decode converts indices to symbols.
func (v *Vocabulary) Decode(indices []int) ([]string, error) {
	out := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(v.symbols) {
			return nil, fmt.Errorf("%w %d", ErrUnknownIndex, idx)
		}
		out[i] = v.symbols[idx]
	}
	return out, nil
}

type vocabularyJSON struct {
	Symbols  []string `json:"symbols"`
	Specials []int    `json:"specials,omitempty"`
}

// MarshalJSON writes the symbol table and the indices of special symbols.
func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	out := vocabularyJSON{Symbols: v.symbols}
	for i := range v.symbols {
		if v.specials[i] {
			out.Specials = append(out.Specials, i)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a vocabulary written by MarshalJSON.
func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var in vocabularyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	restored := NewVocabulary(in.Symbols)
	if restored.Size() != len(in.Symbols) {
		return fmt.Errorf("vocabulary has duplicate symbols")
	}
	for _, i := range in.Specials {
		if i < 0 || i >= restored.Size() {
			return fmt.Errorf("%w %d: special symbol", ErrUnknownIndex, i)
		}
		restored.specials[i] = true
	}

	*v = *restored
	return nil
}
