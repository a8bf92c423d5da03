// Package blockfile provides block-granular random access to a flat binary
// file of fixed-size records. Every record is a 2-byte big-endian signed key
// followed by a 2-byte big-endian signed value; blocks are 4KB aligned runs
// of 1024 consecutive records.
package blockfile

import "encoding/binary"

const (
	// BytesInKey is the encoded size of a record key
	BytesInKey = 2
	// BytesInValue is the encoded size of a record value
	BytesInValue = 2
	// BytesPerRecord is the encoded size of a whole record
	BytesPerRecord = BytesInKey + BytesInValue
	// BytesPerBlock is the size of one file block
	BytesPerBlock = 4096
	// RecordsPerBlock is the number of records held by one block
	RecordsPerBlock = BytesPerBlock / BytesPerRecord
)

// EncodeRecord writes key and value into buf, which must be at least
// BytesPerRecord bytes long.
func EncodeRecord(buf []byte, key, value int16) {
	binary.BigEndian.PutUint16(buf[0:BytesInKey], uint16(key))
	binary.BigEndian.PutUint16(buf[BytesInKey:BytesPerRecord], uint16(value))
}

// DecodeKey reads the record key encoded at the start of buf.
func DecodeKey(buf []byte) int16 {
	return int16(binary.BigEndian.Uint16(buf[0:BytesInKey]))
}

// DecodeValue reads the record value encoded after the key in buf.
func DecodeValue(buf []byte) int16 {
	return int16(binary.BigEndian.Uint16(buf[BytesInKey:BytesPerRecord]))
}

// BlockForRecord returns the block that holds record index r.
func BlockForRecord(r int) int {
	return r / RecordsPerBlock
}

// OffsetForRecord returns the byte offset of record index r inside its block.
func OffsetForRecord(r int) int {
	return (r % RecordsPerBlock) * BytesPerRecord
}
