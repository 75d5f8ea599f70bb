// Package dca reads and writes DCA1 containers.
//
// A DCA1 container is a small length-prefixed binary format used to ship
// pre-encoded Opus audio to voice streaming clients:
//
//	"DCA1"                 4 bytes, magic
//	int32 LE               length H of the JSON header
//	H bytes                JSON encoded Header
//	repeated:
//	  int16 LE             frame length L, 0 <= L <= 32767
//	  L bytes              raw Opus packet
//
// Builder produces containers. Decoder reads them back, and also reads bare
// frame streams that carry no preamble.
package dca
