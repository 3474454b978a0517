// Package tabular writes matrices and vectors as tab-delimited text for
// spreadsheet import and provides the diagnostic log sink of a simulation.
package tabular

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"
)

var log = logging.MustGetLogger("tabular")

// maxShown is the number of rows and columns printed by String.
const maxShown = 10

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// String returns a compact representation of a matrix for log messages.
// Only the top-left corner is shown.
func String(m mat.Matrix) string {
	var buffer bytes.Buffer
	if m == nil {
		return "<Uninitialized matrix>"
	}
	r, c := m.Dims()
	fmt.Fprintf(&buffer, "<Matrix %dx%d\n", r, c)
	for i := 0; i < r; i++ {
		if i == maxShown {
			buffer.WriteString("...\n")
			break
		}
		buffer.WriteString("  ")
		for j := 0; j < c; j++ {
			if j == maxShown {
				buffer.WriteString("...")
				break
			}
			buffer.WriteString(strconv.FormatFloat(m.At(i, j), 'E', 3, 64))
			if j < c-1 {
				buffer.WriteByte('\t')
			}
		}
		buffer.WriteByte('\n')
	}
	buffer.WriteByte('>')
	return buffer.String()
}

// Write writes a labelled matrix with a header row and a header column.
// Missing headers are replaced by 0-based indices.
func Write(w io.Writer, label string, m mat.Matrix, rows, cols []string) error {
	bw := bufio.NewWriter(w)
	r, c := m.Dims()
	bw.WriteString(label)
	for j := 0; j < c; j++ {
		bw.WriteByte('\t')
		if j < len(cols) {
			bw.WriteString(cols[j])
		} else {
			bw.WriteString(strconv.Itoa(j))
		}
	}
	bw.WriteByte('\n')
	for i := 0; i < r; i++ {
		if i < len(rows) {
			bw.WriteString(rows[i])
		} else {
			bw.WriteString(strconv.Itoa(i))
		}
		for j := 0; j < c; j++ {
			bw.WriteByte('\t')
			bw.WriteString(format(m.At(i, j)))
		}
		bw.WriteByte('\n')
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// WriteVector writes a labelled vector as a single column.
func WriteVector(w io.Writer, label string, v []float64) error {
	return Write(w, label, mat.NewDense(len(v), 1, append([]float64(nil), v...)), nil, nil)
}

// Sink receives the diagnostic output of a computation.
type Sink interface {
	Matrix(label string, m mat.Matrix)
	Vector(label string, v []float64)
	Message(format string, args ...interface{})
}

type discard struct{}

func (discard) Matrix(string, mat.Matrix)      {}
func (discard) Vector(string, []float64)       {}
func (discard) Message(string, ...interface{}) {}

// Discard drops everything.
var Discard Sink = discard{}

// Log is an append-only tab-delimited Sink. Write errors do not stop the
// computation: the first one is logged and kept for Err, later output is
// dropped.
type Log struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewLog creates a log writing to w.
func NewLog(w io.Writer) *Log {
	return &Log{w: w}
}

func (l *Log) fail(err error) {
	if l.err == nil {
		l.err = err
		log.Errorf("Error writing diagnostic log: %v", err)
	}
}

// Write implements io.Writer, so that buffered logs can be copied into l.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	n, err := l.w.Write(p)
	if err != nil {
		l.fail(err)
	}
	return n, err
}

// Matrix implements Sink.
func (l *Log) Matrix(label string, m mat.Matrix) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	if err := Write(l.w, label, m, nil, nil); err != nil {
		l.fail(err)
	}
}

// Vector implements Sink.
func (l *Log) Vector(label string, v []float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	if err := WriteVector(l.w, label, v); err != nil {
		l.fail(err)
	}
}

// Message implements Sink.
func (l *Log) Message(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	if _, err := fmt.Fprintf(l.w, format+"\n", args...); err != nil {
		l.fail(err)
	}
}

// Err returns the first write error.
func (l *Log) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Buffer is a Log kept in memory until it is flushed.
type Buffer struct {
	*Log
	buf *bytes.Buffer
}

// NewBuffer creates an empty in-memory log.
func NewBuffer() *Buffer {
	buf := &bytes.Buffer{}
	return &Buffer{Log: NewLog(buf), buf: buf}
}

// FlushTo copies the buffered output to w and resets the buffer.
func (b *Buffer) FlushTo(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.buf.WriteTo(w)
	return err
}

// String returns the buffered output.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
