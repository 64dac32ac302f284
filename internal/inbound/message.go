package inbound

import (
	"bytes"
	"encoding/base64"
	"strings"

	"recivo/internal/domain"
)

var dispositionToken = []byte("content-disposition:")

// scanMessageAttachments recovers attachments from a raw MIME message by
// locating Content-Disposition headers, resolving the enclosing header
// block, and decoding each part body per its Content-Transfer-Encoding.
// Parts without a filename are message text, not attachments.
func scanMessageAttachments(raw []byte) []domain.RawDocument {
	var docs []domain.RawDocument
	lower := bytes.ToLower(raw)

	offset := 0
	for {
		i := bytes.Index(lower[offset:], dispositionToken)
		if i < 0 {
			return docs
		}
		i += offset
		offset = i + len(dispositionToken)

		headerStart := headerBlockStart(raw, i)
		headerEnd, bodyStart := headerBlockEnd(raw, i)
		if bodyStart < 0 {
			continue
		}
		headers := parseHeaderBlock(raw[headerStart:headerEnd])

		_, params := parseHeaderParams(headers["content-disposition"])
		fileName := decodeFileNameParams(params)
		if fileName == "" {
			continue
		}

		body := raw[bodyStart:partBodyEnd(raw, bodyStart)]
		data := decodeTransferEncoding(body, headers["content-transfer-encoding"])
		if len(data) == 0 {
			continue
		}

		mimeType := headers["content-type"]
		if mimeType == "" {
			mimeType = "application/octet-stream"
		} else {
			mimeType, _ = parseContentType(mimeType)
		}
		docs = append(docs, domain.RawDocument{
			Bytes:       data,
			ContentType: mimeType,
			FileName:    fileName,
			SizeBytes:   int64(len(data)),
		})
	}
}

// headerBlockStart walks backward from a header match to the blank line
// (or buffer start) that opens the enclosing header block.
func headerBlockStart(raw []byte, from int) int {
	crlf := bytes.LastIndex(raw[:from], []byte("\r\n\r\n"))
	lf := bytes.LastIndex(raw[:from], []byte("\n\n"))
	switch {
	case crlf >= 0 && crlf+4 > lf+2:
		return crlf + 4
	case lf >= 0:
		return lf + 2
	default:
		return 0
	}
}

// headerBlockEnd finds the blank line terminating the header block that
// contains position from. Returns (headerEnd, bodyStart); bodyStart is -1
// when the block is truncated before its blank line.
func headerBlockEnd(raw []byte, from int) (int, int) {
	crlf := bytes.Index(raw[from:], []byte("\r\n\r\n"))
	lf := bytes.Index(raw[from:], []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return from + crlf, from + crlf + 4
	case lf >= 0:
		return from + lf, from + lf + 2
	default:
		return len(raw), -1
	}
}

// partBodyEnd scans forward for the line that ends this part: a MIME
// boundary marker ("--...") or the start of another header block. Truncated
// input ends the body at the buffer.
func partBodyEnd(raw []byte, bodyStart int) int {
	pos := bodyStart
	for pos < len(raw) {
		lineEnd := bytes.IndexByte(raw[pos:], '\n')
		if lineEnd < 0 {
			return len(raw)
		}
		line := raw[pos : pos+lineEnd]
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("--")) {
			return pos
		}
		pos += lineEnd + 1
	}
	return len(raw)
}

// decodeTransferEncoding decodes a part body per its transfer encoding:
// base64 and quoted-printable are decoded, anything else passes through.
func decodeTransferEncoding(body []byte, encoding string) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return decodeBase64Body(body)
	case "quoted-printable":
		return trimTrailingEOL(decodeQuotedPrintable(body))
	default:
		return trimTrailingEOL(body)
	}
}

// decodeBase64Body strips whitespace and decodes, tolerating a truncated
// trailing quantum by retrying on the longest 4-byte-aligned prefix.
func decodeBase64Body(body []byte) []byte {
	compact := make([]byte, 0, len(body))
	for _, b := range body {
		if b == '\r' || b == '\n' || b == ' ' || b == '\t' {
			continue
		}
		compact = append(compact, b)
	}
	if data, err := base64.StdEncoding.DecodeString(string(compact)); err == nil {
		return data
	}
	if data, err := base64.RawStdEncoding.DecodeString(string(compact)); err == nil {
		return data
	}
	if n := len(compact) / 4 * 4; n > 0 {
		if data, err := base64.StdEncoding.DecodeString(string(compact[:n])); err == nil {
			return data
		}
	}
	return nil
}

// decodeQuotedPrintable decodes =XX hex escapes and removes soft line
// breaks. Malformed escapes pass through literally.
func decodeQuotedPrintable(body []byte) []byte {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '=' {
			out = append(out, c)
			continue
		}
		// Soft line break: "=\r\n" or "=\n".
		if i+1 < len(body) && body[i+1] == '\n' {
			i++
			continue
		}
		if i+2 < len(body) && body[i+1] == '\r' && body[i+2] == '\n' {
			i += 2
			continue
		}
		if i+2 < len(body) {
			hi, okHi := unhex(body[i+1])
			lo, okLo := unhex(body[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}
