// Package tsip decodes the Trimble Standard Interface Protocol (TSIP) as
// emitted by timing receivers.
//
// Decoding happens in two stages. A Framer recovers complete packets from an
// arbitrary byte stream (DLE <id> <data...> DLE ETX, with every literal DLE in
// the data doubled on the wire). Decode then routes a packet by its id and,
// for the 0x8F superpacket, by its sub-id, to one of the fixed-layout record
// decoders.
//
// Everything in this package is pure: no I/O, no logging and no shared state.
// Malformed input never produces an error; it simply produces nothing.
package tsip
