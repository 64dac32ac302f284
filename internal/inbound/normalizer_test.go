package inbound

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recivo/internal/domain"
)

func crlfBody(boundary string, segments ...string) []byte {
	var b bytes.Buffer
	for _, seg := range segments {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(seg)
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.Bytes()
}

func TestDecode_MultipartFieldAndAttachment(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 500)
	var b bytes.Buffer
	b.WriteString("--XYZ\r\n")
	b.WriteString("Content-Disposition: form-data; name=\"subject\"\r\n\r\n")
	b.WriteString("Lunch\r\n")
	b.WriteString("--XYZ\r\n")
	b.WriteString("Content-Disposition: form-data; name=\"receipt\"; filename=\"r.jpg\"\r\n")
	b.WriteString("Content-Type: image/jpeg\r\n\r\n")
	b.Write(payload)
	b.WriteString("\r\n--XYZ--\r\n")

	env := Decode(b.Bytes(), "multipart/form-data; boundary=XYZ")

	assert.Equal(t, "Lunch", env.Fields["subject"])
	require.Len(t, env.Attachments, 1)
	att := env.Attachments[0]
	assert.Equal(t, "r.jpg", att.FileName)
	assert.Equal(t, "image/jpeg", att.ContentType)
	assert.Len(t, att.Bytes, 500)
	assert.Equal(t, int64(500), att.SizeBytes)
	assert.Equal(t, payload, att.Bytes)
}

func TestDecode_QuotedBoundary(t *testing.T) {
	body := crlfBody("sep", "Content-Disposition: form-data; name=\"from\"\r\n\r\nalice@example.com\r\n")
	env := Decode(body, `multipart/form-data; boundary="sep"`)
	assert.Equal(t, "alice@example.com", env.Fields["from"])
}

func TestDecode_LFOnlyFraming(t *testing.T) {
	body := []byte("--B\n" +
		"Content-Disposition: form-data; name=\"subject\"\n\n" +
		"Taxi\n" +
		"--B\n" +
		"Content-Disposition: form-data; name=\"f\"; filename=\"a.pdf\"\n" +
		"Content-Type: application/pdf\n\n" +
		"%PDF-1.4 data\n" +
		"--B--\n")

	env := Decode(body, "multipart/form-data; boundary=B")

	assert.Equal(t, "Taxi", env.Fields["subject"])
	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "a.pdf", env.Attachments[0].FileName)
	assert.Equal(t, []byte("%PDF-1.4 data"), env.Attachments[0].Bytes)
}

func TestDecode_RFC2231Filename(t *testing.T) {
	body := crlfBody("Z",
		"Content-Disposition: form-data; name=\"f\"; filename*=UTF-8''caf%C3%A9.pdf\r\nContent-Type: application/pdf\r\n\r\npdfdata\r\n")

	env := Decode(body, "multipart/form-data; boundary=Z")

	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "café.pdf", env.Attachments[0].FileName)
}

func TestDecode_FoldedHeader(t *testing.T) {
	body := []byte("--Z\r\n" +
		"Content-Disposition: form-data;\r\n name=\"f\"; filename=\"long name.png\"\r\n" +
		"Content-Type: image/png\r\n\r\n" +
		"pngdata\r\n" +
		"--Z--\r\n")

	env := Decode(body, "multipart/form-data; boundary=Z")

	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "long name.png", env.Attachments[0].FileName)
}

func TestDecode_TruncatedInputKeepsCompletedParts(t *testing.T) {
	body := []byte("--Q\r\n" +
		"Content-Disposition: form-data; name=\"subject\"\r\n\r\n" +
		"Dinner\r\n" +
		"--Q\r\n" +
		"Content-Disposition: form-data; name=\"f\"; filename=\"cut.jpg\"\r\n" +
		"Content-Type: image/jpeg\r\n\r\n" +
		"partial-bytes")

	env := Decode(body, "multipart/form-data; boundary=Q")

	assert.Equal(t, "Dinner", env.Fields["subject"])
	require.Len(t, env.Attachments, 1)
	assert.Equal(t, []byte("partial-bytes"), env.Attachments[0].Bytes)
}

func TestDecode_GarbageNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("--"),
		[]byte("not multipart at all"),
		[]byte("--B\r\nContent-Disposition"),
		bytes.Repeat([]byte{0x00, 0xFF}, 512),
	}
	for _, in := range inputs {
		env := Decode(in, "multipart/form-data; boundary=B")
		require.NotNil(t, env)
	}
}

func TestDecode_EmptyEnvelopeIsValid(t *testing.T) {
	env := Decode(nil, "")
	require.NotNil(t, env)
	assert.Empty(t, env.Fields)
	assert.Empty(t, env.Attachments)
}

func TestDecode_RawMessageInsideFormField(t *testing.T) {
	fileData := []byte("JFIF-not-really-a-jpeg-but-bytes")
	encoded := base64.StdEncoding.EncodeToString(fileData)

	rawMessage := "From: bob@example.com\r\n" +
		"Subject: Fwd: receipt\r\n" +
		"Content-Type: multipart/mixed; boundary=inner\r\n\r\n" +
		"--inner\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"see attached\r\n" +
		"--inner\r\n" +
		"Content-Type: image/jpeg\r\n" +
		"Content-Disposition: attachment; filename=\"store.jpg\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		encoded + "\r\n" +
		"--inner--\r\n"

	body := crlfBody("outer",
		"Content-Disposition: form-data; name=\"email\"\r\n\r\n"+rawMessage+"\r\n")

	env := Decode(body, "multipart/form-data; boundary=outer")

	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "store.jpg", env.Attachments[0].FileName)
	assert.Equal(t, "image/jpeg", env.Attachments[0].ContentType)
	assert.Equal(t, fileData, env.Attachments[0].Bytes)
}

func TestDecode_QuotedPrintableAttachment(t *testing.T) {
	raw := "Content-Type: text/csv\r\n" +
		"Content-Disposition: attachment; filename=\"expense.csv\"\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n\r\n" +
		"total=3D42.50=\r\n\r\n"

	docs := scanMessageAttachments([]byte(raw))

	require.Len(t, docs, 1)
	assert.Equal(t, "total=42.50", string(docs[0].Bytes))
}

func TestDecode_AttachmentInfoSideChannel(t *testing.T) {
	fileData := []byte{0x89, 0x50, 0x4E, 0x47, 0x01, 0x02}
	encoded := base64.StdEncoding.EncodeToString(fileData)

	body := crlfBody("M",
		"Content-Disposition: form-data; name=\"attachment-info\"\r\n\r\n"+
			`{"attachment1":{"filename":"shop.png","type":"image/png"}}`+"\r\n",
		"Content-Disposition: form-data; name=\"attachment1\"\r\n\r\n"+encoded+"\r\n")

	env := Decode(body, "multipart/form-data; boundary=M")

	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "shop.png", env.Attachments[0].FileName)
	assert.Equal(t, "image/png", env.Attachments[0].ContentType)
	assert.Equal(t, fileData, env.Attachments[0].Bytes)
}

func TestDecode_AttachmentInfoByteArrayPayload(t *testing.T) {
	body := crlfBody("M",
		"Content-Disposition: form-data; name=\"meta\"\r\n\r\n"+
			`{"blob":{"filename":"tiny.bin","content-type":"application/octet-stream"}}`+"\r\n",
		"Content-Disposition: form-data; name=\"blob\"\r\n\r\n[1,2,255]\r\n")

	env := Decode(body, "multipart/form-data; boundary=M")

	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "tiny.bin", env.Attachments[0].FileName)
	assert.Equal(t, []byte{1, 2, 255}, env.Attachments[0].Bytes)
}

func TestDecode_DeduplicatesBySignature(t *testing.T) {
	data := []byte("same-bytes")
	docs := dedupeAttachments([]domain.RawDocument{
		{FileName: "r.jpg", Bytes: data},
		{FileName: "R.JPG", Bytes: data},
		{FileName: "other.jpg", Bytes: data},
	})
	require.Len(t, docs, 2)
	assert.Equal(t, "r.jpg", docs[0].FileName)
	assert.Equal(t, "other.jpg", docs[1].FileName)
}

func TestDecode_URLEncodedFallback(t *testing.T) {
	env := Decode([]byte("subject=Coffee&from=a%40b.com"), "application/x-www-form-urlencoded")
	assert.Equal(t, "Coffee", env.Fields["subject"])
	assert.Equal(t, "a@b.com", env.Fields["from"])
}

func TestDecode_JSONFallback(t *testing.T) {
	env := Decode([]byte(`{"subject":"Groceries","count":2}`), "application/json")
	assert.Equal(t, "Groceries", env.Fields["subject"])
	assert.Equal(t, "2", env.Fields["count"])
}

func TestReadableText_PrefersTextField(t *testing.T) {
	env := Decode([]byte("text=Receipt+from+store"), "application/x-www-form-urlencoded")
	assert.Equal(t, "Receipt from store", ReadableText(env, nil))
}

func TestReadableText_PlainPart(t *testing.T) {
	raw := []byte("Content-Type: text/plain\r\n\r\n" +
		"Total: $12.00\r\n" +
		"--boundary--\r\n")
	assert.Equal(t, "Total: $12.00", ReadableText(nil, raw))
}

func TestReadableText_HTMLStripped(t *testing.T) {
	raw := []byte("Content-Type: text/html\r\n\r\n" +
		"<html><body><p>Total: <b>$9.99</b> &amp; tip</p></body></html>\r\n" +
		"--b--\r\n")
	text := ReadableText(nil, raw)
	assert.Contains(t, text, "Total: $9.99 & tip")
	assert.NotContains(t, text, "<b>")
}

func TestReadableText_NoiseStripping(t *testing.T) {
	raw := []byte("X-Mailer: something\r\n" +
		strings.Repeat("QUJDREVGR0hJSktMTU5PUFFSU1RVVldYWVpBQkNERUZHSElKS0xNTk9QUVJTVFVWV1hZWkFC", 1) + "\r\n" +
		"Thanks for shopping with us\r\n" +
		"--0000boundary\r\n")
	text := ReadableText(nil, raw)
	assert.Equal(t, "Thanks for shopping with us", text)
}

func TestParseContentType_Boundary(t *testing.T) {
	mt, b := parseContentType(`multipart/form-data; charset=utf-8; boundary="xYz123"`)
	assert.Equal(t, "multipart/form-data", mt)
	assert.Equal(t, "xYz123", b)

	_, b = parseContentType("multipart/form-data; boundary=plain")
	assert.Equal(t, "plain", b)

	_, b = parseContentType("application/json")
	assert.Equal(t, "", b)
}
