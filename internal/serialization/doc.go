// Package serialization provides the native .born snapshot format for
// recurrent models.
//
// A .born file stores a set of named float64 matrices together with a JSON
// header:
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00 Magic "BORN"
//	    0x04 Version (uint32 LE)
//	    0x08 Flags (uint32 LE)
//	    0x10 Header size (uint64 LE)
//	    0x18 Data size (uint64 LE)
//	    0x20 SHA-256 of the data section
//	  [Header: JSON]
//	  [Padding to 64 bytes]
//	  [Data: float64 LE, row-major, one block per matrix]
//
// Only weights are stored; gradient accumulators are zero after loading.
//
// Example usage:
//
//	header := serialization.Header{ModelType: "lstm"}
//	if err := serialization.WriteFile("model.born", params, header); err != nil {
//	    log.Fatal(err)
//	}
//
//	reader, err := serialization.OpenFile("model.born", serialization.ReaderOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	params, err := reader.ReadStateDict()
//
// WriteSafeTensors exports the same matrices in the SafeTensors layout for
// use by other tools.
package serialization
