// Package sse reads the Server-Sent-Events framing used by the Veldt
// answer stream: UTF-8 text in arbitrary-sized transport chunks, events
// delimited by a blank line, payload carried on "data:" lines.
//
// The package handles framing only. Payloads come back as raw strings;
// decoding and classification belong to the caller.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialBufSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

// Reader extracts data payloads from an SSE byte stream.
//
// The underlying bufio.Scanner accumulates raw bytes until a full line
// exists, so a multi-byte UTF-8 character split across transport chunks
// is reassembled before any string conversion. That buffer is the only
// carried decoder state; a Reader must not be shared between goroutines.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader returns a Reader consuming src. Lines longer than 1 MB are
// reported as a stream error by Next.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialBufSize), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the concatenated data payload of the next event block. It
// blocks until a blank line terminates a block carrying at least one data
// line; blocks without data lines (comments, keep-alives, reserved fields)
// are skipped and never surfaced. Multiple data lines within one block are
// joined with "\n".
//
// At end of input a trailing unterminated block is yielded first; after
// that Next returns io.EOF. Read failures are returned as-is.
func (r *Reader) Next() (string, error) {
	var data []string

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// A blank line closes the current block.
		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			// No data accumulated: keep-alive or comment-only block.
			continue
		}

		if value, ok := strings.CutPrefix(line, "data:"); ok {
			// A single space after the tag is part of the framing, not
			// the payload.
			data = append(data, strings.TrimPrefix(value, " "))
		}
		// Comment lines (":") and other field tags are reserved and
		// intentionally ignored.
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}

	// Source exhausted without a trailing blank line: yield the partial
	// block rather than dropping it.
	if len(data) > 0 {
		return strings.Join(data, "\n"), nil
	}

	return "", io.EOF
}
