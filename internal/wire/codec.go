// Package wire parses raw HTTP request bytes and serializes responses,
// including the SSE framing used by streaming generation. The server speaks
// just enough HTTP for one request per connection; every response carries
// Connection: close.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedRequest = errors.New("malformed request")

// Request is one parsed exchange. Headers are kept as the raw blob between
// the request line and the blank separator; only Content-Length is ever
// looked up, so full header parsing is not worth carrying.
type Request struct {
	Method  string
	Path    string
	headers string
	Body    []byte
}

// ParseRequest extracts method, path and body from the raw bytes of one
// request. Returns ErrMalformedRequest when no usable request line exists;
// the caller closes the connection without a response.
func ParseRequest(raw []byte) (*Request, error) {
	head, body := splitHead(raw)
	line, rest, _ := strings.Cut(head, "\n")
	line = strings.TrimRight(line, "\r")

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, ErrMalformedRequest
	}
	method := strings.ToUpper(fields[0])
	path := fields[1]
	if method == "" || !strings.HasPrefix(path, "/") {
		return nil, ErrMalformedRequest
	}

	return &Request{
		Method:  method,
		Path:    path,
		headers: rest,
		Body:    body,
	}, nil
}

// ContentLength reports the declared body length, or -1 when absent or
// unparseable.
func (r *Request) ContentLength() int {
	return scanContentLength(r.headers)
}

// RequestComplete inspects a possibly-incomplete raw request and reports
// whether enough bytes have arrived to hand it to the handler. Response
// bytes are never sent before the full declared body is in.
func RequestComplete(raw []byte) bool {
	idx := headEnd(raw)
	if idx < 0 {
		return false
	}
	cl := scanContentLength(string(raw[:idx]))
	if cl < 0 {
		return true
	}
	return len(raw)-bodyStart(raw, idx) >= cl
}

func splitHead(raw []byte) (head string, body []byte) {
	idx := headEnd(raw)
	if idx < 0 {
		return string(raw), nil
	}
	return string(raw[:idx]), raw[bodyStart(raw, idx):]
}

// headEnd finds the first blank-line separator, tolerating bare-LF clients.
func headEnd(raw []byte) int {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return i
	}
	return bytes.Index(raw, []byte("\n\n"))
}

func bodyStart(raw []byte, headEnd int) int {
	if bytes.HasPrefix(raw[headEnd:], []byte("\r\n\r\n")) {
		return headEnd + 4
	}
	return headEnd + 2
}

func scanContentLength(headers string) int {
	for _, line := range strings.Split(headers, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimRight(value, "\r")))
		if err != nil || n < 0 {
			return -1
		}
		return n
	}
	return -1
}

var statusText = map[int]string{
	200: "OK",
	204: "No Content",
	400: "Bad Request",
	404: "Not Found",
	500: "Internal Server Error",
}

// EncodeResponse produces one full response. Every response terminates the
// connection, so Connection: close is always present.
func EncodeResponse(status int, contentType string, body []byte, cors bool) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, status)
	if contentType != "" {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	if cors {
		b.WriteString("Access-Control-Allow-Origin: *\r\n")
	}
	b.WriteString("Connection: close\r\n\r\n")
	b.Write(body)
	return b.Bytes()
}

// EncodePreflightResponse is the 204 answer to an OPTIONS preflight.
func EncodePreflightResponse() []byte {
	var b bytes.Buffer
	writeStatusLine(&b, 204)
	b.WriteString("Access-Control-Allow-Origin: *\r\n")
	b.WriteString("Access-Control-Allow-Methods: GET, POST, OPTIONS\r\n")
	b.WriteString("Access-Control-Allow-Headers: Content-Type, Authorization\r\n")
	b.WriteString("Content-Length: 0\r\n")
	b.WriteString("Connection: close\r\n\r\n")
	return b.Bytes()
}

// EncodeStreamHeader opens an SSE response. No Content-Length: the body runs
// until the connection closes.
func EncodeStreamHeader(cors bool) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, 200)
	b.WriteString("Content-Type: text/event-stream\r\n")
	b.WriteString("Cache-Control: no-cache\r\n")
	if cors {
		b.WriteString("Access-Control-Allow-Origin: *\r\n")
	}
	b.WriteString("Connection: close\r\n\r\n")
	return b.Bytes()
}

// EncodeSSEChunk frames a JSON payload as one unnamed SSE event.
func EncodeSSEChunk(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("data: %s\n\n", data)), nil
}

// EncodeSSEEvent frames a JSON payload as a named SSE event.
func EncodeSSEEvent(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)), nil
}

func writeStatusLine(b *bytes.Buffer, status int) {
	text := statusText[status]
	if text == "" {
		text = "Unknown"
	}
	fmt.Fprintf(b, "HTTP/1.1 %d %s\r\n", status, text)
}
