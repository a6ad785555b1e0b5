package mail

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestDecodeMessageBodyPlainText(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: hello\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Just a plain body.\r\n"

	got := decodeMessageBody([]byte(raw))
	if got != "Just a plain body." {
		t.Fatalf("decodeMessageBody() = %q", got)
	}
}

func TestDecodeMessageBodyQuotedPrintable(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=C3=A9 meeting at noon=2E\r\n"

	got := decodeMessageBody([]byte(raw))
	if got != "Café meeting at noon." {
		t.Fatalf("decodeMessageBody() = %q", got)
	}
}

func TestDecodeMessageBodyMultipartPrefersPlain(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Content-Type: multipart/alternative; boundary=\"sep\"\r\n" +
		"\r\n" +
		"--sep\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--sep\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--sep--\r\n"

	got := decodeMessageBody([]byte(raw))
	if got != "plain version" {
		t.Fatalf("decodeMessageBody() = %q, want plain part", got)
	}
}

func TestDecodeMessageBodyHTMLOnlyStripsTags(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><h1>Offer</h1><p>Buy &amp; save</p></body></html>\r\n"

	got := decodeMessageBody([]byte(raw))
	if got != "Offer Buy & save" {
		t.Fatalf("decodeMessageBody() = %q", got)
	}
}

func TestDecodeMessageBodyBase64Part(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("decoded content"))
	raw := "From: alice@example.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		encoded + "\r\n"

	got := decodeMessageBody([]byte(raw))
	if got != "decoded content" {
		t.Fatalf("decodeMessageBody() = %q", got)
	}
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello world", want: "hello world"},
		{name: "utf8 q-encoded", input: "=?utf-8?q?caf=C3=A9?=", want: "café"},
		{name: "latin1 q-encoded", input: "=?iso-8859-1?q?caf=E9?=", want: "café"},
		{name: "base64 encoded", input: "=?utf-8?b?aGVsbG8=?=", want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeHeader(tt.input); got != tt.want {
				t.Fatalf("decodeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	input := "<div>one\n<span>two</span>\n</div> three&nbsp;four"
	got := stripHTML(input)
	if !strings.Contains(got, "one two three") {
		t.Fatalf("stripHTML() = %q", got)
	}
}

func TestDecodeGmailData(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("hi there"))
	unpadded := base64.RawURLEncoding.EncodeToString([]byte("hi there"))

	if got := decodeGmailData(padded); got != "hi there" {
		t.Fatalf("decodeGmailData(padded) = %q", got)
	}
	if got := decodeGmailData(unpadded); got != "hi there" {
		t.Fatalf("decodeGmailData(unpadded) = %q", got)
	}
	if got := decodeGmailData("%%%"); got != "" {
		t.Fatalf("decodeGmailData(invalid) = %q, want empty", got)
	}
}
