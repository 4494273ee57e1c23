package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// BPE encodings accepted by SegmenterByName.
const (
	encodingCL100kBase = "cl100k_base"
	encodingP50kBase   = "p50k_base"
	encodingR50kBase   = "r50k_base"
)

// TikToken cuts text at the token boundaries of an OpenAI byte-pair
// encoding. The model still learns its own vocabulary; tiktoken only
// decides where one symbol ends and the next begins.
type TikToken struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTikToken loads the named encoding, e.g. "cl100k_base".
func NewTikToken(encoding string) (*TikToken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken encoding %q: %w", encoding, err)
	}
	return &TikToken{enc: enc, name: encoding}, nil
}

// NewTikTokenForModel loads the encoding used by an OpenAI model such as
// "gpt-4". Name reports the model name so a snapshot can reload it.
func NewTikTokenForModel(model string) (*TikToken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tiktoken model %q: %w", model, err)
	}
	return &TikToken{enc: enc, name: model}, nil
}

// Split returns the text of every BPE token of text. A character spread
// over several tokens leaves partial UTF-8 in each piece; Join restores it.
func (t *TikToken) Split(text string) ([]string, error) {
	ids := t.TokenIDs(text)
	pieces := make([]string, 0, len(ids))
	for _, id := range ids {
		pieces = append(pieces, t.enc.Decode([]int{id}))
	}
	return pieces, nil
}

// Join concatenates pieces.
func (t *TikToken) Join(symbols []string) string {
	return strings.Join(symbols, "")
}

// TokenIDs returns the encoding's own IDs for text.
func (t *TikToken) TokenIDs(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Name returns the encoding or model name.
func (t *TikToken) Name() string {
	return t.name
}
