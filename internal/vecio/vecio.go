// Package vecio decodes float64 vectors from text and raw binary files.
package vecio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/exp/mmap"
)

// Format selects how an input is decoded.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatText   Format = "text"
	FormatBinary Format = "binary"
)

// Stdin is the path that reads standard input.
const Stdin = "-"

// ErrTruncated is returned for a binary file whose size is not a whole
// number of float64 values.
var ErrTruncated = errors.New("binary input is not a multiple of 8 bytes")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatText, FormatBinary:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("unknown input format %q", s)
	}
}

// Detect resolves FormatAuto by file extension: .f64 and .bin are binary,
// anything else is text.
func Detect(path string, f Format) Format {
	if f != FormatAuto {
		return f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".f64", ".bin":
		return FormatBinary
	default:
		return FormatText
	}
}

// Load reads the vector stored at path. Stdin is always read as text.
func Load(path string, f Format) ([]float64, error) {
	if path == Stdin {
		return ParseText(os.Stdin)
	}

	switch Detect(path, f) {
	case FormatBinary:
		return ReadBinary(path)
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		x, err := ParseText(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return x, nil
	}
}

// ParseText reads numbers separated by whitespace or commas. A '#' starts a
// comment running to the end of the line. NaN, Inf and -Inf are accepted.
func ParseText(r io.Reader) ([]float64, error) {
	var x []float64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\r'
		})
		for _, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Errorf("line %d: invalid number %q", line, tok)
			}
			x = append(x, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return x, nil
}

// ReadBinary memory-maps path and decodes it as little-endian float64
// values.
func ReadBinary(path string) ([]float64, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap file: %w", err)
	}
	defer r.Close()

	size := r.Len()
	if size%8 != 0 {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTruncated, size)
	}

	data := make([]byte, size)
	if _, err := r.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read mmap: %w", err)
	}

	x := make([]float64, size/8)
	for i := range x {
		x[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return x, nil
}

// WriteBinary stores x at path as little-endian float64 values.
func WriteBinary(path string, x []float64) error {
	data := make([]byte, len(x)*8)
	for i, v := range x {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write binary: %w", err)
	}
	return nil
}
