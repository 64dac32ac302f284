package inbound

import (
	"bytes"
	"regexp"
	"strings"

	"recivo/internal/domain"
)

// ReadableText extracts the human-readable content of an inbound payload,
// used for text-only extraction when no attachment was recovered. It
// prefers a decoded "text" field, then text/plain MIME parts, then stripped
// text/html parts, and finally a best-effort noise-stripping pass over the
// raw payload. Returns "" when nothing readable exists.
func ReadableText(env *domain.InboundEnvelope, raw []byte) string {
	if env != nil {
		if t := strings.TrimSpace(env.Fields["text"]); t != "" {
			return t
		}
	}
	if t := textPartsOfType(raw, "text/plain"); t != "" {
		return t
	}
	if t := textPartsOfType(raw, "text/html"); t != "" {
		return stripHTML(t)
	}
	if env != nil {
		if h := strings.TrimSpace(env.Fields["html"]); h != "" {
			return stripHTML(h)
		}
	}
	return stripNoise(raw)
}

// textPartsOfType collects and transfer-decodes the bodies of MIME parts
// declaring the given content type.
func textPartsOfType(raw []byte, contentType string) string {
	lower := bytes.ToLower(raw)
	token := []byte("content-type:")
	var collected []string

	offset := 0
	for {
		i := bytes.Index(lower[offset:], token)
		if i < 0 {
			break
		}
		i += offset
		offset = i + len(token)

		headerStart := headerBlockStart(raw, i)
		headerEnd, bodyStart := headerBlockEnd(raw, i)
		if bodyStart < 0 {
			continue
		}
		headers := parseHeaderBlock(raw[headerStart:headerEnd])
		mediaType, _ := parseContentType(headers["content-type"])
		if mediaType != contentType {
			continue
		}
		// A filename means this is an attachment, not message text.
		if _, params := parseHeaderParams(headers["content-disposition"]); decodeFileNameParams(params) != "" {
			continue
		}
		body := raw[bodyStart:partBodyEnd(raw, bodyStart)]
		decoded := decodeTransferEncoding(body, headers["content-transfer-encoding"])
		if t := strings.TrimSpace(string(decoded)); t != "" {
			collected = append(collected, t)
		}
	}
	return strings.Join(collected, "\n")
}

var (
	htmlTagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlScriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
)

// stripHTML removes markup and common entities from HTML content.
func stripHTML(html string) string {
	text := htmlScriptRe.ReplaceAllString(html, " ")
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = htmlEntities.Replace(text)
	text = spaceRunRe.ReplaceAllString(text, " ")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

var (
	base64LineRe = regexp.MustCompile(`^[A-Za-z0-9+/=]{60,}$`)
	mimeHeaderRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*:\s`)
)

// stripNoise drops long base64-looking lines, MIME headers and boundary
// markers from a raw payload, keeping whatever prose remains.
func stripNoise(raw []byte) string {
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" ||
			strings.HasPrefix(trimmed, "--") ||
			base64LineRe.MatchString(trimmed) ||
			mimeHeaderRe.MatchString(trimmed) {
			continue
		}
		lines = append(lines, trimmed)
	}
	text := strings.Join(lines, "\n")
	return strings.TrimSpace(blankRunRe.ReplaceAllString(text, "\n\n"))
}
