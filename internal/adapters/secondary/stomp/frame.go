package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CommandConnect    = "CONNECT"
	CommandConnected  = "CONNECTED"
	CommandSubscribe  = "SUBSCRIBE"
	CommandSend       = "SEND"
	CommandMessage    = "MESSAGE"
	CommandReceipt    = "RECEIPT"
	CommandError      = "ERROR"
	CommandDisconnect = "DISCONNECT"
)

var ErrInvalidFrame = errors.New("invalid stomp frame")

type Header struct {
	Key   string
	Value string
}

// Frame is a STOMP 1.2 frame. Headers keep their wire order; on repeated
// keys the first one wins.
type Frame struct {
	Command string
	Headers []Header
	Body    []byte
}

func NewFrame(command string, headers ...string) Frame {
	f := Frame{Command: command}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers = append(f.Headers, Header{Key: headers[i], Value: headers[i+1]})
	}

	return f
}

func (f Frame) Get(key string) (string, bool) {
	for _, h := range f.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}

	return "", false
}

func (f Frame) Marshal() []byte {
	var buf bytes.Buffer

	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	escape := f.Command != CommandConnect && f.Command != CommandConnected
	for _, h := range f.Headers {
		if escape {
			buf.WriteString(escapeHeader(h.Key))
			buf.WriteByte(':')
			buf.WriteString(escapeHeader(h.Value))
		} else {
			buf.WriteString(h.Key)
			buf.WriteByte(':')
			buf.WriteString(h.Value)
		}
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)

	return buf.Bytes()
}

// Parse reads every frame in one WebSocket message. Heart-beat EOLs between
// frames are skipped, so a heart-beat-only message yields no frame.
func Parse(data []byte) ([]Frame, error) {
	var frames []Frame

	for {
		data = bytes.TrimLeft(data, "\r\n")
		if len(data) == 0 {
			return frames, nil
		}

		f, rest, err := parseOne(data)
		if err != nil {
			return nil, err
		}

		frames = append(frames, f)
		data = rest
	}
}

func parseOne(data []byte) (Frame, []byte, error) {
	end, sep := bytes.Index(data, []byte("\n\n")), 2
	if crlf := bytes.Index(data, []byte("\r\n\r\n")); crlf >= 0 && (end < 0 || crlf < end) {
		end, sep = crlf, 4
	}
	if end < 0 {
		return Frame{}, nil, fmt.Errorf("%w: missing header terminator", ErrInvalidFrame)
	}

	lines := strings.Split(strings.ReplaceAll(string(data[:end]), "\r\n", "\n"), "\n")
	f := Frame{Command: lines[0]}

	unescape := f.Command != CommandConnect && f.Command != CommandConnected
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return Frame{}, nil, fmt.Errorf("%w: header %q", ErrInvalidFrame, line)
		}

		if unescape {
			var err error
			if key, err = unescapeHeader(key); err != nil {
				return Frame{}, nil, err
			}
			if value, err = unescapeHeader(value); err != nil {
				return Frame{}, nil, err
			}
		}

		f.Headers = append(f.Headers, Header{Key: key, Value: value})
	}

	body := data[end+sep:]

	if length, ok := f.Get("content-length"); ok {
		n, err := strconv.Atoi(length)
		if err != nil || n < 0 || n >= len(body) || body[n] != 0 {
			return Frame{}, nil, fmt.Errorf("%w: content-length %q", ErrInvalidFrame, length)
		}

		f.Body = body[:n]
		return f, body[n+1:], nil
	}

	nul := bytes.IndexByte(body, 0)
	if nul < 0 {
		return Frame{}, nil, fmt.Errorf("%w: missing NUL terminator", ErrInvalidFrame)
	}

	f.Body = body[:nul]
	return f, body[nul+1:], nil
}

var headerEscaper = strings.NewReplacer("\\", "\\\\", "\r", "\\r", "\n", "\\n", ":", "\\c")

func escapeHeader(s string) string {
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}

		if i+1 == len(s) {
			return "", fmt.Errorf("%w: dangling escape in %q", ErrInvalidFrame, s)
		}

		i++
		switch s[i] {
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		case '\\':
			b.WriteByte('\\')
		default:
			return "", fmt.Errorf("%w: undefined escape \\%c", ErrInvalidFrame, s[i])
		}
	}

	return b.String(), nil
}
