package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the artifact binary framing.
const (
	// MagicByte marks the start of every frame.
	MagicByte = 0xA5

	// HeaderSize is the fixed size of the frame metadata:
	// 1 byte (Magic) + 1 byte (Section) + 4 bytes (Length) + 4 bytes (CRC32) = 10 bytes.
	HeaderSize = 10

	// MaxPayload is the largest payload a single frame may carry.
	MaxPayload = 1<<32 - 1
)

// Section identifies what a frame payload contains.
type Section byte

const (
	SectionHeader  Section = 0x01
	SectionIndptr  Section = 0x02
	SectionIndices Section = 0x03
	SectionData    Section = 0x04
)

var (
	// ErrInvalidMagic indicates the stream lost synchronization or is not an artifact.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates data corruption within the frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended abruptly.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrPayloadTooLarge is returned when a payload does not fit the length field.
	ErrPayloadTooLarge = errors.New("frame payload too large")
)

// FrameWriter writes checksummed frames to an io.Writer.
type FrameWriter struct {
	w      io.Writer
	header [HeaderSize]byte
}

// NewFrameWriter creates a writer that wraps an underlying io.Writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes the payload into a frame and writes it.
// Frame format: [Magic(1)][Section(1)][Length(4)][CRC(4)][Payload(N)]
func (fw *FrameWriter) WriteFrame(section Section, payload []byte) error {
	if uint64(len(payload)) > MaxPayload {
		return ErrPayloadTooLarge
	}
	fw.header[0] = MagicByte
	fw.header[1] = byte(section)
	binary.LittleEndian.PutUint32(fw.header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(fw.header[6:10], crc32.ChecksumIEEE(payload))

	if _, err := fw.w.Write(fw.header[:]); err != nil {
		return err
	}
	_, err := fw.w.Write(payload)
	return err
}

// ReadFrame reads the next frame, validating the magic byte and checksum.
// It returns io.EOF only when the stream ends cleanly at a frame boundary.
func ReadFrame(r io.Reader) (Section, []byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, ErrIncompleteFrame
	}
	if header[0] != MagicByte {
		return 0, nil, ErrInvalidMagic
	}

	section := Section(header[1])
	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, ErrIncompleteFrame
	}
	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return 0, nil, ErrChecksumMismatch
	}
	return section, payload, nil
}
