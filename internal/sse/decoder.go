package sse

import (
	"bytes"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	deltaPath    = "choices.0.delta.content"

	readSize = 4096
)

// Decoder turns a chat-completions event stream into text deltas.
//
// The source may be fragmented arbitrarily: lines split across reads, a
// multi-byte character split across reads, several lines in a single read.
// Lines that fail to parse are skipped.
type Decoder struct {
	src   io.Reader
	chunk []byte
	buf   []byte
	lines []string

	eof     bool
	readErr error
	err     error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		src:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		chunk: make([]byte, readSize),
	}
}

// Recv returns the next non-empty delta. It returns io.EOF once the stream
// has ended, either on the [DONE] sentinel or when the source is exhausted.
// A read error from the source is returned as is after every line that was
// complete before it has been handed out.
func (d *Decoder) Recv() (string, error) {
	for {
		if d.err != nil {
			return "", d.err
		}

		for len(d.lines) > 0 {
			line := d.lines[0]
			d.lines = d.lines[1:]

			delta, done := parseLine(line)
			if done {
				d.lines = nil
				d.buf = nil
				d.err = io.EOF
				return "", io.EOF
			}
			if delta != "" {
				return delta, nil
			}
		}

		if d.readErr != nil {
			d.err = d.readErr
			continue
		}
		if d.eof {
			d.err = io.EOF
			continue
		}

		n, err := d.src.Read(d.chunk)
		if n > 0 {
			d.buf = append(d.buf, d.chunk[:n]...)
			d.split()
		}
		switch {
		case err == io.EOF:
			d.eof = true
			if len(d.buf) > 0 {
				d.lines = append(d.lines, string(d.buf))
				d.buf = nil
			}
		case err != nil:
			d.readErr = err
		}
	}
}

// split moves every complete line out of the buffer. The trailing segment
// stays behind even when it is empty.
func (d *Decoder) split() {
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		d.lines = append(d.lines, string(d.buf[:i]))
		d.buf = d.buf[i+1:]
	}
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	}
}

// parseLine extracts the delta carried by a single line. done reports the
// terminal sentinel.
func parseLine(line string) (delta string, done bool) {
	line = strings.TrimSpace(line)
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return "", false
	}
	if payload == doneSentinel {
		return "", true
	}
	if !gjson.Valid(payload) {
		return "", false
	}
	content := gjson.Get(payload, deltaPath)
	if content.Type != gjson.String {
		return "", false
	}
	return content.Str, false
}
