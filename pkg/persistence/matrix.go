package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/sanonone/shelfgraph/pkg/sparse"
	"github.com/x448/float16"
)

// Precision selects how matrix values are stored on disk.
type Precision string

const (
	Float64 Precision = "float64"
	Float32 Precision = "float32"
	// Float16 halves the size of Float32 at roughly three significant digits,
	// which is enough for unit-normalized TF-IDF weights.
	Float16 Precision = "float16"
)

const (
	matrixVersion    = 1
	matrixHeaderSize = 1 + 1 + 8 + 8 + 8
)

var (
	// ErrUnexpectedSection is returned when frames arrive out of order.
	ErrUnexpectedSection = errors.New("unexpected section")
	// ErrUnsupportedVersion is returned for artifacts written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported matrix format version")
)

// chunkElems bounds the number of elements encoded into a single frame.
var chunkElems = 1 << 20

var precisionCodes = map[Precision]byte{Float64: 1, Float32: 2, Float16: 3}

func (p Precision) width() int {
	switch p {
	case Float64:
		return 8
	case Float32:
		return 4
	default:
		return 2
	}
}

// ParsePrecision validates a configuration value. An empty string selects Float32.
func ParsePrecision(s string) (Precision, error) {
	if s == "" {
		return Float32, nil
	}
	p := Precision(strings.ToLower(s))
	if _, ok := precisionCodes[p]; !ok {
		return "", fmt.Errorf("unsupported precision %q (want float64, float32 or float16)", s)
	}
	return p, nil
}

func precisionFromCode(code byte) (Precision, bool) {
	for p, c := range precisionCodes {
		if c == code {
			return p, true
		}
	}
	return "", false
}

// WriteMatrix encodes m as a header frame followed by the indptr, indices and
// data sections, each split over as many frames as needed.
func WriteMatrix(w io.Writer, m *sparse.Matrix, p Precision) error {
	code, ok := precisionCodes[p]
	if !ok {
		return fmt.Errorf("unsupported precision %q", p)
	}
	if uint64(m.Cols) > math.MaxUint32 {
		return fmt.Errorf("matrix has %d columns, at most %d can be stored", m.Cols, uint64(math.MaxUint32))
	}
	fw := NewFrameWriter(w)

	header := make([]byte, matrixHeaderSize)
	header[0] = matrixVersion
	header[1] = code
	binary.LittleEndian.PutUint64(header[2:10], uint64(m.Rows))
	binary.LittleEndian.PutUint64(header[10:18], uint64(m.Cols))
	binary.LittleEndian.PutUint64(header[18:26], uint64(m.NNZ()))
	if err := fw.WriteFrame(SectionHeader, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := writeChunks(fw, SectionIndptr, len(m.Indptr), 8, func(dst []byte, i int) {
		binary.LittleEndian.PutUint64(dst, uint64(m.Indptr[i]))
	}); err != nil {
		return fmt.Errorf("writing indptr: %w", err)
	}
	if err := writeChunks(fw, SectionIndices, len(m.Indices), 4, func(dst []byte, i int) {
		binary.LittleEndian.PutUint32(dst, uint32(m.Indices[i]))
	}); err != nil {
		return fmt.Errorf("writing indices: %w", err)
	}

	var put func(dst []byte, i int)
	switch p {
	case Float64:
		put = func(dst []byte, i int) { binary.LittleEndian.PutUint64(dst, math.Float64bits(m.Data[i])) }
	case Float32:
		put = func(dst []byte, i int) { binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(m.Data[i]))) }
	case Float16:
		put = func(dst []byte, i int) {
			binary.LittleEndian.PutUint16(dst, float16.Fromfloat32(float32(m.Data[i])).Bits())
		}
	}
	if err := writeChunks(fw, SectionData, len(m.Data), p.width(), put); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}
	return nil
}

func writeChunks(fw *FrameWriter, section Section, n, size int, put func(dst []byte, i int)) error {
	if n == 0 {
		return nil
	}
	buf := make([]byte, min(n, chunkElems)*size)
	for start := 0; start < n; start += chunkElems {
		end := min(start+chunkElems, n)
		chunk := buf[:(end-start)*size]
		for i := start; i < end; i++ {
			put(chunk[(i-start)*size:], i)
		}
		if err := fw.WriteFrame(section, chunk); err != nil {
			return err
		}
	}
	return nil
}

// MatrixInfo is the decoded matrix header.
type MatrixInfo struct {
	Rows      int
	Cols      int
	NNZ       int
	Precision Precision
}

func decodeHeader(payload []byte) (MatrixInfo, error) {
	if len(payload) != matrixHeaderSize {
		return MatrixInfo{}, fmt.Errorf("%w: header of %d bytes", ErrIncompleteFrame, len(payload))
	}
	if payload[0] != matrixVersion {
		return MatrixInfo{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, payload[0])
	}
	p, ok := precisionFromCode(payload[1])
	if !ok {
		return MatrixInfo{}, fmt.Errorf("%w: unknown precision code %d", sparse.ErrMalformed, payload[1])
	}
	return MatrixInfo{
		Rows:      int(binary.LittleEndian.Uint64(payload[2:10])),
		Cols:      int(binary.LittleEndian.Uint64(payload[10:18])),
		NNZ:       int(binary.LittleEndian.Uint64(payload[18:26])),
		Precision: p,
	}, nil
}

// ReadMatrix decodes a matrix written by WriteMatrix and validates its structure.
// Values stored at reduced precision are widened back to float64.
func ReadMatrix(r io.Reader) (*sparse.Matrix, MatrixInfo, error) {
	section, payload, err := ReadFrame(r)
	if err != nil {
		if err == io.EOF {
			err = ErrIncompleteFrame
		}
		return nil, MatrixInfo{}, fmt.Errorf("reading header: %w", err)
	}
	if section != SectionHeader {
		return nil, MatrixInfo{}, fmt.Errorf("%w: expected header, got section %d", ErrUnexpectedSection, section)
	}
	info, err := decodeHeader(payload)
	if err != nil {
		return nil, MatrixInfo{}, err
	}

	m := &sparse.Matrix{
		Rows:    info.Rows,
		Cols:    info.Cols,
		Indptr:  make([]int, 0, info.Rows+1),
		Indices: make([]int, 0, info.NNZ),
		Data:    make([]float64, 0, info.NNZ),
	}
	width := info.Precision.width()
	last := SectionHeader
	for {
		section, payload, err := ReadFrame(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, info, err
		}
		if section < last || section == SectionHeader {
			return nil, info, fmt.Errorf("%w: section %d after section %d", ErrUnexpectedSection, section, last)
		}
		last = section

		switch section {
		case SectionIndptr:
			if len(payload)%8 != 0 {
				return nil, info, fmt.Errorf("%w: indptr payload of %d bytes", sparse.ErrMalformed, len(payload))
			}
			for off := 0; off < len(payload); off += 8 {
				m.Indptr = append(m.Indptr, int(binary.LittleEndian.Uint64(payload[off:])))
			}
		case SectionIndices:
			if len(payload)%4 != 0 {
				return nil, info, fmt.Errorf("%w: indices payload of %d bytes", sparse.ErrMalformed, len(payload))
			}
			for off := 0; off < len(payload); off += 4 {
				m.Indices = append(m.Indices, int(binary.LittleEndian.Uint32(payload[off:])))
			}
		case SectionData:
			if len(payload)%width != 0 {
				return nil, info, fmt.Errorf("%w: data payload of %d bytes", sparse.ErrMalformed, len(payload))
			}
			for off := 0; off < len(payload); off += width {
				m.Data = append(m.Data, decodeValue(payload[off:], info.Precision))
			}
		default:
			return nil, info, fmt.Errorf("%w: unknown section %d", ErrUnexpectedSection, section)
		}
	}

	if len(m.Indptr) != info.Rows+1 || len(m.Indices) != info.NNZ || len(m.Data) != info.NNZ {
		return nil, info, fmt.Errorf("%w: expected %d rows and %d values, got %d indptr entries, %d indices and %d values",
			ErrIncompleteFrame, info.Rows, info.NNZ, len(m.Indptr), len(m.Indices), len(m.Data))
	}
	if err := m.Validate(); err != nil {
		return nil, info, err
	}
	return m, info, nil
}

func decodeValue(b []byte, p Precision) float64 {
	switch p {
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
	}
}

// SaveMatrix writes m to path atomically.
func SaveMatrix(path string, m *sparse.Matrix, p Precision) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return WriteMatrix(w, m, p)
	})
}

// LoadMatrix reads a matrix artifact from path.
func LoadMatrix(path string) (*sparse.Matrix, MatrixInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, MatrixInfo{}, err
	}
	defer f.Close()
	return ReadMatrix(bufio.NewReader(f))
}

// FormatShape renders a shape as "(rows, cols)".
func FormatShape(rows, cols int) string {
	return fmt.Sprintf("(%d, %d)", rows, cols)
}

// SaveShape writes the "(rows, cols)" shape file of m.
func SaveShape(path string, m *sparse.Matrix) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, FormatShape(m.Rows, m.Cols))
		return err
	})
}

// LoadShape parses a shape file written by SaveShape.
func LoadShape(path string) (rows, cols int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(string(raw)), "(%d, %d)", &rows, &cols); err != nil {
		return 0, 0, fmt.Errorf("parsing shape %q: %w", strings.TrimSpace(string(raw)), err)
	}
	return rows, cols, nil
}
