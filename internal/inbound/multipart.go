package inbound

import (
	"bytes"
	"net/url"
	"strings"
)

// part is one decoded multipart section: its folded-and-parsed header block
// plus the body bytes with trailing CR/LF trimmed.
type part struct {
	headers map[string]string
	body    []byte
}

// partScanner is a pull-based iterator over the parts of a multipart body.
// It keeps an explicit cursor into an immutable byte slice so all bounds
// handling happens in one place. Truncated input (a missing closing
// delimiter) terminates the scan cleanly after the last complete part.
type partScanner struct {
	data    []byte
	delim   []byte // "--" + boundary
	pos     int    // -1 once exhausted
	started bool
}

func newPartScanner(data []byte, boundary string) *partScanner {
	return &partScanner{
		data:  data,
		delim: []byte("--" + boundary),
	}
}

// next returns the next decoded part. ok is false at the closing
// "--boundary--" delimiter or at end of input.
func (s *partScanner) next() (part, bool) {
	seg, ok := s.nextSegment()
	if !ok {
		return part{}, false
	}
	headerBlock, body := splitHeaderBody(seg)
	return part{
		headers: parseHeaderBlock(headerBlock),
		body:    trimTrailingEOL(body),
	}, true
}

// nextSegment advances the cursor to the raw bytes between two delimiters.
func (s *partScanner) nextSegment() ([]byte, bool) {
	if s.pos < 0 {
		return nil, false
	}
	if !s.started {
		i := bytes.Index(s.data, s.delim)
		if i < 0 {
			s.pos = -1
			return nil, false
		}
		s.pos = i + len(s.delim)
		s.started = true
	}

	rest := s.data[s.pos:]
	if bytes.HasPrefix(rest, []byte("--")) {
		// Closing delimiter.
		s.pos = -1
		return nil, false
	}
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 {
		s.pos = -1
		return nil, false
	}
	s.pos += nl + 1

	end := bytes.Index(s.data[s.pos:], s.delim)
	if end < 0 {
		// Missing closing delimiter: return what is there and stop.
		seg := s.data[s.pos:]
		s.pos = -1
		return seg, true
	}
	seg := s.data[s.pos : s.pos+end]
	s.pos += end + len(s.delim)
	return seg, true
}

// splitHeaderBody splits a part at its first blank line, tolerating both
// CRLF-CRLF and LF-LF framing. A part without a blank line is all body.
func splitHeaderBody(seg []byte) (headerBlock, body []byte) {
	crlf := bytes.Index(seg, []byte("\r\n\r\n"))
	lf := bytes.Index(seg, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return seg[:crlf], seg[crlf+4:]
	case lf >= 0:
		return seg[:lf], seg[lf+2:]
	default:
		return nil, seg
	}
}

// parseHeaderBlock parses folded header lines into a lowercase-keyed map.
// Continuation lines (leading space or tab) extend the previous header.
func parseHeaderBlock(block []byte) map[string]string {
	headers := map[string]string{}
	if len(block) == 0 {
		return headers
	}
	var lastKey string
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey != "" {
				headers[lastKey] += " " + strings.TrimSpace(line)
			}
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			lastKey = ""
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		headers[key] = strings.TrimSpace(line[colon+1:])
		lastKey = key
	}
	return headers
}

// parseHeaderParams splits a structured header value such as
// `form-data; name="x"; filename*=UTF-8''r%C3%A9.pdf` into its main value
// and lowercase-keyed parameters, respecting quoted parameter values.
func parseHeaderParams(value string) (main string, params map[string]string) {
	params = map[string]string{}
	segments := splitUnquoted(value, ';')
	if len(segments) == 0 {
		return "", params
	}
	main = strings.ToLower(strings.TrimSpace(segments[0]))
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		eq := strings.IndexByte(seg, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(seg[:eq]))
		val := strings.TrimSpace(seg[eq+1:])
		val = strings.Trim(val, `"`)
		params[key] = val
	}
	return main, params
}

// splitUnquoted splits on sep outside of double quotes.
func splitUnquoted(s string, sep byte) []string {
	var out []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// decodeFileNameParams resolves a part's filename, preferring the extended
// RFC 2231 form `filename*=charset''percent-encoded` over the plain one.
func decodeFileNameParams(params map[string]string) string {
	if ext, ok := params["filename*"]; ok && ext != "" {
		if decoded := decodeExtendedValue(ext); decoded != "" {
			return decoded
		}
	}
	return params["filename"]
}

// decodeExtendedValue decodes `charset'language'percent-encoded`. The
// charset is assumed UTF-8 compatible; undecodable input falls back to the
// raw encoded tail.
func decodeExtendedValue(v string) string {
	first := strings.IndexByte(v, '\'')
	if first < 0 {
		return v
	}
	second := strings.IndexByte(v[first+1:], '\'')
	if second < 0 {
		return v
	}
	encoded := v[first+1+second+1:]
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return encoded
	}
	return decoded
}

// trimTrailingEOL removes the CR/LF bytes that precede the next delimiter.
func trimTrailingEOL(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
