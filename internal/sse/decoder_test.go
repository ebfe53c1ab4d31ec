package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"Héllo\"}}]}\n\n" +
	": keep-alive\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\", 世界\"}}]}\r\n\r\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\" 👋\"}}]}\n\n" +
	"data: [DONE]\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"after done\"}}]}\n\n"

var wellFormedDeltas = []string{"Héllo", ", 世界", " 👋"}

// chunkReader hands out one chunk per Read call.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	c := r.chunks[0]
	n := copy(p, c)
	if n < len(c) {
		r.chunks[0] = c[n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func chunked(parts ...string) *chunkReader {
	r := &chunkReader{}
	for _, p := range parts {
		r.chunks = append(r.chunks, []byte(p))
	}
	return r
}

func collect(t *testing.T, r io.Reader) []string {
	t.Helper()
	dec := NewDecoder(r)
	deltas := []string{}
	for {
		delta, err := dec.Recv()
		if errors.Is(err, io.EOF) {
			return deltas
		}
		require.NoError(t, err)
		deltas = append(deltas, delta)
	}
}

func TestDecoder_WholeStream(t *testing.T) {
	assert.Equal(t, wellFormedDeltas, collect(t, strings.NewReader(wellFormed)))
}

func TestDecoder_EverySplitOffset(t *testing.T) {
	b := []byte(wellFormed)
	for i := 0; i <= len(b); i++ {
		got := collect(t, chunked(string(b[:i]), string(b[i:])))
		require.Equal(t, wellFormedDeltas, got, "split at byte %d", i)
	}
}

func TestDecoder_OneByteReads(t *testing.T) {
	got := collect(t, iotest.OneByteReader(strings.NewReader(wellFormed)))
	assert.Equal(t, wellFormedDeltas, got)
	assert.Equal(t, "Héllo, 世界 👋", strings.Join(got, ""))
}

func TestDecoder_DoneOnly(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: [DONE]\n\n"))

	delta, err := dec.Recv()
	assert.Empty(t, delta)
	assert.ErrorIs(t, err, io.EOF)

	_, err = dec.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_MalformedLineSkipped(t *testing.T) {
	body := "data: not valid json\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n"

	assert.Equal(t, []string{"hi"}, collect(t, strings.NewReader(body)))
}

func TestDecoder_IgnoresFramesWithoutDelta(t *testing.T) {
	body := "event: ping\n" +
		"data: {}\n" +
		"data: {\"choices\":[]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":42}}]}\n" +
		"data: {\"choices\":[{\"finish_reason\":\"stop\",\"delta\":{}}]}\n" +
		"data:{\"choices\":[{\"delta\":{\"content\":\"no space\"}}]}\n"

	assert.Empty(t, collect(t, strings.NewReader(body)))
}

func TestDecoder_FlushesTrailingLineAtEOF(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}"

	assert.Equal(t, []string{"a", "b"}, collect(t, chunked(body[:20], body[20:])))
}

func TestDecoder_SplitMultiByteCharacter(t *testing.T) {
	line := "data: {\"choices\":[{\"delta\":{\"content\":\"世\"}}]}\n"
	cut := strings.Index(line, "世") + 1

	got := collect(t, chunked(line[:cut], line[cut:]))
	assert.Equal(t, []string{"世"}, got)
}

func TestDecoder_ManyLinesInOneChunk(t *testing.T) {
	var sb strings.Builder
	want := []string{}
	for _, w := range []string{"one", " two", " three", " four"} {
		sb.WriteString("data: {\"choices\":[{\"delta\":{\"content\":\"" + w + "\"}}]}\n\n")
		want = append(want, w)
	}

	assert.Equal(t, want, collect(t, chunked(sb.String())))
}

func TestDecoder_ReadErrorAfterBufferedLines(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{
		chunks: [][]byte{[]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"y\"}}]}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"partial",
		)},
		err: boom,
	}
	dec := NewDecoder(r)

	delta, err := dec.Recv()
	require.NoError(t, err)
	assert.Equal(t, "x", delta)

	delta, err = dec.Recv()
	require.NoError(t, err)
	assert.Equal(t, "y", delta)

	_, err = dec.Recv()
	assert.ErrorIs(t, err, boom)

	_, err = dec.Recv()
	assert.ErrorIs(t, err, boom)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delta string
		done  bool
	}{
		{"content", `data: {"choices":[{"delta":{"content":"hey"}}]}`, "hey", false},
		{"padded", "  data: {\"choices\":[{\"delta\":{\"content\":\"hey\"}}]}\r", "hey", false},
		{"sentinel", "data: [DONE]", "", true},
		{"sentinel padded", "data: [DONE]  ", "", true},
		{"comment", ": ping", "", false},
		{"blank", "", "", false},
		{"broken json", `data: {"choices":[{"delta":`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, done := parseLine(tt.line)
			assert.Equal(t, tt.delta, delta)
			assert.Equal(t, tt.done, done)
		})
	}
}
