package client

import (
	"bufio"
	"bytes"
	"io"
)

// sseReader parses Server-Sent Events from a response body. The server
// only emits data: fields, but event: is tolerated.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the data payload of the next event, or io.EOF when
// the stream ends. Multi-line data fields are joined with newlines.
func (s *sseReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// id:, retry:, event: and comment lines are ignored.
	}
}
