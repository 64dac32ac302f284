package inbound

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/url"
	"strconv"
	"strings"

	"recivo/internal/domain"
)

// Decode converts an opaque inbound payload plus its Content-Type header
// into an InboundEnvelope. It tolerates malformed or truncated input and
// never fails: whatever fields and attachments decoded successfully are
// returned, and an empty envelope is a valid result.
func Decode(body []byte, contentType string) *domain.InboundEnvelope {
	env := &domain.InboundEnvelope{Fields: map[string]string{}}
	if len(body) == 0 {
		return env
	}

	mediaType, boundary := parseContentType(contentType)
	switch {
	case boundary != "":
		decodeMultipart(env, body, boundary)
	case strings.HasPrefix(mediaType, "application/x-www-form-urlencoded"):
		decodeURLEncoded(env, body)
	case strings.HasPrefix(mediaType, "application/json"):
		decodeJSONFields(env, body)
	default:
		// No recognizable framing; keep the raw payload available for the
		// raw-message and readable-text fallbacks below.
	}

	// Some clients wrap a full raw MIME message inside a single form field.
	// When no attachment came out of the form fields, scan field values and
	// the raw payload for embedded MIME parts.
	if len(env.Attachments) == 0 {
		for _, v := range env.Fields {
			env.Attachments = append(env.Attachments, scanMessageAttachments([]byte(v))...)
		}
		if len(env.Attachments) == 0 {
			env.Attachments = append(env.Attachments, scanMessageAttachments(body)...)
		}
	}

	// Side-channel attachment metadata: a JSON map keyed by field name,
	// pointing at base64 or byte-array payloads among the decoded fields.
	if len(env.Attachments) == 0 {
		env.Attachments = append(env.Attachments, decodeAttachmentInfo(env.Fields)...)
	}

	env.Attachments = dedupeAttachments(env.Attachments)
	return env
}

// parseContentType extracts the media type and the multipart boundary token
// (quoted or bare) from a Content-Type header value.
func parseContentType(contentType string) (mediaType, boundary string) {
	parts := strings.Split(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(parts[0]))
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if rest, ok := cutPrefixFold(p, "boundary="); ok {
			boundary = strings.Trim(rest, `"`)
		}
	}
	return mediaType, boundary
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

func decodeMultipart(env *domain.InboundEnvelope, body []byte, boundary string) {
	scanner := newPartScanner(body, boundary)
	for {
		part, ok := scanner.next()
		if !ok {
			return
		}
		disposition := part.headers["content-disposition"]
		if disposition == "" {
			continue
		}
		_, params := parseHeaderParams(disposition)
		name := params["name"]
		fileName := decodeFileNameParams(params)

		if fileName == "" {
			if name != "" {
				env.Fields[name] = string(part.body)
			}
			continue
		}
		if len(part.body) == 0 {
			continue
		}
		mimeType := part.headers["content-type"]
		if mimeType == "" {
			mimeType = "application/octet-stream"
		} else {
			mimeType, _ = parseContentType(mimeType)
		}
		env.Attachments = append(env.Attachments, domain.RawDocument{
			Bytes:       part.body,
			ContentType: mimeType,
			FileName:    fileName,
			SizeBytes:   int64(len(part.body)),
		})
	}
}

func decodeURLEncoded(env *domain.InboundEnvelope, body []byte) {
	// url.ParseQuery returns the pairs it managed to decode even on error.
	values, err := url.ParseQuery(string(body))
	if err != nil {
		log.Printf("inbound.Decode: partial url-encoded decode: %v", err)
	}
	for k, v := range values {
		if len(v) > 0 {
			env.Fields[k] = v[0]
		}
	}
}

func decodeJSONFields(env *domain.InboundEnvelope, body []byte) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Printf("inbound.Decode: malformed JSON payload ignored: %v", err)
		return
	}
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			env.Fields[k] = t
		case float64, bool:
			b, _ := json.Marshal(t)
			env.Fields[k] = string(b)
		}
	}
}

// attachmentInfoEntry models one entry of the side-channel metadata field
// some email gateways send alongside the decoded form fields.
type attachmentInfoEntry struct {
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	ContentType string `json:"content-type"`
}

func decodeAttachmentInfo(fields map[string]string) []domain.RawDocument {
	var docs []domain.RawDocument
	for _, v := range fields {
		if !strings.HasPrefix(strings.TrimSpace(v), "{") {
			continue
		}
		var info map[string]attachmentInfoEntry
		if err := json.Unmarshal([]byte(v), &info); err != nil {
			continue
		}
		for fieldName, entry := range info {
			if entry.Filename == "" {
				continue
			}
			payload, ok := fields[fieldName]
			if !ok || payload == "" {
				continue
			}
			data := decodeFieldPayload(payload)
			if len(data) == 0 {
				continue
			}
			mimeType := entry.ContentType
			if mimeType == "" {
				mimeType = entry.Type
			}
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			docs = append(docs, domain.RawDocument{
				Bytes:       data,
				ContentType: mimeType,
				FileName:    entry.Filename,
				SizeBytes:   int64(len(data)),
			})
		}
	}
	return docs
}

// decodeFieldPayload interprets a field value as base64 or as a JSON array
// of byte values. Returns nil when neither form decodes.
func decodeFieldPayload(payload string) []byte {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "[") {
		var nums []int
		if err := json.Unmarshal([]byte(trimmed), &nums); err == nil {
			data := make([]byte, len(nums))
			for i, n := range nums {
				data[i] = byte(n)
			}
			return data
		}
		return nil
	}
	compact := strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, trimmed)
	if data, err := base64.StdEncoding.DecodeString(compact); err == nil {
		return data
	}
	if data, err := base64.RawStdEncoding.DecodeString(compact); err == nil {
		return data
	}
	return nil
}

// dedupeAttachments drops attachments recovered through multiple fallback
// paths, keyed by lowercased filename plus byte length. First occurrence wins.
func dedupeAttachments(docs []domain.RawDocument) []domain.RawDocument {
	if len(docs) < 2 {
		return docs
	}
	seen := map[string]bool{}
	out := docs[:0]
	for _, d := range docs {
		sig := strings.ToLower(d.FileName) + "|" + strconv.Itoa(len(d.Bytes))
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, d)
	}
	return out
}
