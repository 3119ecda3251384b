package embedding

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// The on-disk container is the NumPy .npy format, version 1.0: the magic
// string, a python-literal header recording dtype and shape, then the raw
// little-endian float64 values. Only one-dimensional '<f8' arrays are
// accepted; anything else is rejected on read.

var npyMagic = []byte("\x93NUMPY")

// maxNpyElems bounds the element count accepted from a file header, so a
// corrupt header cannot drive a huge allocation. Reference embeddings are
// hundreds of elements; a million is far beyond any legitimate file.
const maxNpyElems = 1 << 20

// WriteNpy writes vec as a 1-D float64 .npy array.
func WriteNpy(w io.Writer, vec []float64) error {
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d,), }", len(vec))

	// Pad the header with spaces so the data section starts on a 64-byte
	// boundary, matching what numpy itself writes.
	total := len(npyMagic) + 2 + 2 + len(header) + 1
	if rem := total % 64; rem != 0 {
		header += strings.Repeat(" ", 64-rem)
	}
	header += "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return fmt.Errorf("failed to write npy magic: %w", err)
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return fmt.Errorf("failed to write npy version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return fmt.Errorf("failed to write npy header length: %w", err)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("failed to write npy header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
		return fmt.Errorf("failed to write npy data: %w", err)
	}
	return nil
}

// ReadNpy reads a 1-D float64 .npy array.
func ReadNpy(r io.Reader) ([]float64, error) {
	magic := make([]byte, len(npyMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read npy magic: %w", err)
	}
	if string(magic) != string(npyMagic) {
		return nil, fmt.Errorf("not an npy file (bad magic)")
	}

	version := make([]byte, 2)
	if _, err := io.ReadFull(r, version); err != nil {
		return nil, fmt.Errorf("failed to read npy version: %w", err)
	}
	if version[0] != 1 {
		return nil, fmt.Errorf("unsupported npy version %d.%d", version[0], version[1])
	}

	var headerLen uint16
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("failed to read npy header length: %w", err)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}

	n, err := parseHeader(string(headerBytes))
	if err != nil {
		return nil, err
	}
	if n > maxNpyElems {
		return nil, fmt.Errorf("npy shape too large: %d elements", n)
	}

	vec := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, &vec); err != nil {
		return nil, fmt.Errorf("npy data truncated: %w", err)
	}
	return vec, nil
}

// parseHeader extracts the element count from an npy header, rejecting
// anything that is not a C-ordered 1-D little-endian float64 array.
func parseHeader(header string) (int, error) {
	if !strings.Contains(header, "'descr': '<f8'") {
		return 0, fmt.Errorf("unsupported npy dtype (want '<f8'): %s", strings.TrimSpace(header))
	}
	if !strings.Contains(header, "'fortran_order': False") {
		return 0, fmt.Errorf("fortran-ordered npy arrays are not supported")
	}

	open := strings.Index(header, "(")
	closed := strings.Index(header, ")")
	if open < 0 || closed < open {
		return 0, fmt.Errorf("malformed npy shape: %s", strings.TrimSpace(header))
	}

	dims := strings.Split(strings.TrimSuffix(strings.TrimSpace(header[open+1:closed]), ","), ",")
	if len(dims) != 1 {
		return 0, fmt.Errorf("expected 1-D npy array, got %d dimensions", len(dims))
	}

	n, err := strconv.Atoi(strings.TrimSpace(dims[0]))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed npy shape: %s", strings.TrimSpace(header))
	}
	return n, nil
}

// ReadNpyFile loads a 1-D float64 array from path.
func ReadNpyFile(path string) ([]float64, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding file: %w", err)
	}
	defer f.Close()
	return ReadNpy(f)
}
