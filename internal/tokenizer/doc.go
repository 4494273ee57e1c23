// Package tokenizer translates between text and the integer indices the
// recurrent models train on.
//
// The package has two layers:
//   - Segmenter: splits text into symbols and joins symbols back into text
//     (runes, regex words, tiktoken BPE pieces)
//   - Vocabulary: a symbol table assigning every unique symbol an index in
//     first-seen order, with optional special symbols for input/output pairs
//
// Example usage:
//
//	seg := tokenizer.RuneSegmenter{}
//	symbols, _ := seg.Split("hello")
//	vocab := tokenizer.NewVocabulary(symbols)
//
//	indices, err := vocab.Encode(symbols)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	decoded, err := vocab.Decode(indices)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text := seg.Join(decoded)
package tokenizer
