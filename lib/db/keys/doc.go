// Package keys implements the order-preserving key encoding used by the object-store engines.
//
// Every valid key is encoded into a byte string whose lexicographic order equals the
// key order. The encoding starts with a type tag, which orders the kinds of keys:
//
//	number (0x10) < date (0x20) < string (0x30) < binary (0x40) < array (0x50)
//
// Numbers are stored as 8 byte big endian IEEE-754 values with the sign bit flipped
// (negative numbers have all bits flipped). Dates are stored as nanoseconds since the
// unix epoch. Strings and binaries escape 0x00 as 0x00 0xFF and end with 0x00. Arrays
// contain their encoded elements and end with 0x00.
//
// The encoding is self-delimiting, which allows composite keys to be built by simple
// concatenation (e.g. index key || primary key) and split again with Split.
package keys
