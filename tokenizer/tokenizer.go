// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer turns text into the integer tokens the recurrent models
// consume.
//
// A Segmenter splits text into symbols (runes, words or tiktoken BPE
// pieces) and a Vocabulary maps each symbol to an index.
//
// Example:
//
//	import "github.com/born-ml/recurrent/tokenizer"
//
//	seg, _ := tokenizer.SegmenterByName("words")
//	symbols, _ := seg.Split("Jane saw Doug.")
//	vocab := tokenizer.NewVocabulary(symbols)
//	tokens, _ := vocab.Encode(symbols)
package tokenizer

import "github.com/born-ml/recurrent/internal/tokenizer"

// Encoder is the symbol table the models consume.
type Encoder = tokenizer.Encoder

// Segmenter splits text into symbols and joins them back.
type Segmenter = tokenizer.Segmenter

// Vocabulary maps symbols to indices in first-seen order.
type Vocabulary = tokenizer.Vocabulary

// RuneSegmenter makes one symbol per Unicode code point.
type RuneSegmenter = tokenizer.RuneSegmenter

// RegexSegmenter makes one symbol per match of a regular expression.
type RegexSegmenter = tokenizer.RegexSegmenter

// TikToken splits text into the BPE pieces of a tiktoken encoding.
type TikToken = tokenizer.TikToken

// Special symbols of input/output pair training.
const (
	StopInput   = tokenizer.StopInput
	StartOutput = tokenizer.StartOutput
)

// Segmenter names.
const (
	SegmenterRunes = tokenizer.SegmenterRunes
	SegmenterWords = tokenizer.SegmenterWords
)

// DefaultWordPattern splits text into words, numbers and punctuation.
const DefaultWordPattern = tokenizer.DefaultWordPattern

// Errors returned by Vocabulary.
var (
	ErrUnknownSymbol = tokenizer.ErrUnknownSymbol
	ErrUnknownIndex  = tokenizer.ErrUnknownIndex
)

// NewVocabulary builds a vocabulary from every unique symbol of sequences.
func NewVocabulary(sequences ...[]string) *Vocabulary {
	return tokenizer.NewVocabulary(sequences...)
}

// FromAllPrintable builds a vocabulary of extra followed by printable ASCII.
func FromAllPrintable(extra ...string) *Vocabulary {
	return tokenizer.FromAllPrintable(extra...)
}

// NewRegexSegmenter compiles pattern; empty selects DefaultWordPattern.
func NewRegexSegmenter(pattern string) (*RegexSegmenter, error) {
	return tokenizer.NewRegexSegmenter(pattern)
}

// NewTikToken creates a segmenter over a tiktoken encoding such as
// "cl100k_base".
func NewTikToken(encodingName string) (*TikToken, error) {
	return tokenizer.NewTikToken(encodingName)
}

// NewTikTokenForModel creates a segmenter over the encoding of an OpenAI
// model name.
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	return tokenizer.NewTikTokenForModel(modelName)
}

// SegmenterByName returns "runes", "words" or a tiktoken encoding.
func SegmenterByName(name string) (Segmenter, error) {
	return tokenizer.SegmenterByName(name)
}
