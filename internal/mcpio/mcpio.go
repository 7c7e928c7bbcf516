// Package mcpio carries JSON-RPC 2.0 messages over a byte stream and implements a small MCP
// tool server on top of them.
//
// Two framings are accepted on input: Content-Length headers followed by the body, and
// newline-delimited JSON where each line is one message. The framing is detected per message
// and replies use the framing of the last message read.
package mcpio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxMessageSize = 10 * 1024 * 1024 // 10MB

type Framing int

const (
	// FramingHeader is Content-Length framing.
	FramingHeader Framing = iota
	// FramingLine is one JSON document per line.
	FramingLine
)

func (f Framing) String() string {
	if f == FramingLine {
		return "line"
	}
	return "header"
}

var errTooLarge = errors.New("message exceeds size limit")

// Conn reads framed messages from r and writes framed messages to w.
type Conn struct {
	r       *bufio.Reader
	w       io.Writer
	framing Framing
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Conn{r: br, w: w}
}

// Framing reports the framing used for writes: that of the last message read, header framing
// before any message was read.
func (c *Conn) Framing() Framing {
	return c.framing
}

// SetFraming forces the framing used for writes.
func (c *Conn) SetFraming(f Framing) {
	c.framing = f
}

// Read returns the next message body. It returns io.EOF at a clean end of stream.
func (c *Conn) Read() ([]byte, error) {
	if err := c.skipBlank(); err != nil {
		return nil, err
	}
	first, err := c.r.Peek(1)
	if err != nil {
		return nil, err
	}
	if first[0] == '{' || first[0] == '[' {
		c.framing = FramingLine
		return c.readLine()
	}
	c.framing = FramingHeader
	return c.readHeaderFramed()
}

// Write frames payload in the current framing.
func (c *Conn) Write(payload []byte) error {
	if c.framing == FramingLine {
		if bytes.ContainsAny(payload, "\r\n") {
			return fmt.Errorf("line framed message contains a newline")
		}
		if _, err := c.w.Write(payload); err != nil {
			return err
		}
		_, err := io.WriteString(c.w, "\n")
		return err
	}
	if _, err := fmt.Fprintf(c.w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	_, err := c.w.Write(payload)
	return err
}

// skipBlank consumes whitespace between messages.
func (c *Conn) skipBlank() error {
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c.r.UnreadByte()
	}
}

func (c *Conn) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return line, nil
			}
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxMessageSize {
			return nil, fmt.Errorf("%w: %d", errTooLarge, maxMessageSize)
		}
		if !isPrefix {
			return bytes.TrimRight(line, "\r"), nil
		}
	}
}

func (c *Conn) readHeaderFramed() ([]byte, error) {
	contentLength := -1
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "content-length") {
			continue
		}
		value = strings.TrimSpace(value)
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length: %q", value)
		}
		if n > maxMessageSize {
			return nil, fmt.Errorf("%w: content length %d, limit %d", errTooLarge, n, maxMessageSize)
		}
		contentLength = n
	}
	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, err
	}
	return body, nil
}
