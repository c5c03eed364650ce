package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// MaxLineLength is the maximum length of a control line, terminator included.
const MaxLineLength = 4096

// Reader reads control lines from a connection.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, MaxLineLength)}
}

// Buffered exposes the underlying buffered reader. The server peeks on it to
// notice a closed control connection while a transfer is running.
func (r *Reader) Buffered() *bufio.Reader {
	return r.r
}

// ReadLine returns the next line including its terminator.
// A clean close before the first byte is io.EOF; a close in the middle of a
// line or an oversize line is ErrProtocolFraming.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.r.ReadSlice('\n')
	switch {
	case err == nil:
		return string(line), nil
	case errors.Is(err, bufio.ErrBufferFull):
		return "", fmt.Errorf("%w: line longer than %d bytes", ErrProtocolFraming, MaxLineLength)
	case errors.Is(err, io.EOF) && len(line) > 0:
		return "", fmt.Errorf("%w: connection closed mid-line", ErrProtocolFraming)
	default:
		return "", err
	}
}

// ReadResponse reads and decodes one status line.
func (r *Reader) ReadResponse() (Response, error) {
	line, err := r.ReadLine()
	if err != nil {
		return Response{}, err
	}
	return DecodeResponse(line)
}

// ReadCommand reads and decodes one command line.
func (r *Reader) ReadCommand() (Command, error) {
	line, err := r.ReadLine()
	if err != nil {
		return Command{}, err
	}
	return DecodeCommand(line)
}

// Writer writes control lines to a connection, flushing after each line.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteResponse sends one status line.
func (w *Writer) WriteResponse(code Code, text string) error {
	line, err := EncodeResponse(code, text)
	if err != nil {
		return err
	}
	return w.writeLine(line)
}

// WriteCommand sends one command line.
func (w *Writer) WriteCommand(op, param string) error {
	return w.writeLine(EncodeCommand(op, param))
}

func (w *Writer) writeLine(line string) error {
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	return w.w.Flush()
}
