package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message/mail"
)

// Message is an outbound email before MIME encoding.
type Message struct {
	From    *mail.Address
	To      []*mail.Address
	Bcc     []*mail.Address
	Subject string
	Date    time.Time

	// Text is the plain-text body. With HTML set it becomes the
	// alternative part, derived from HTML when empty.
	Text string
	HTML string
}

// Compose renders m as an RFC 2822 message. Plain-text messages are a
// single part; HTML messages are multipart/alternative.
func Compose(m Message) ([]byte, error) {
	if m.From == nil {
		return nil, fmt.Errorf("composing message: missing sender")
	}
	if len(m.To) == 0 {
		return nil, fmt.Errorf("composing message: missing recipient")
	}

	var h mail.Header
	h.SetAddressList("From", []*mail.Address{m.From})
	h.SetAddressList("To", m.To)
	if len(m.Bcc) > 0 {
		h.SetAddressList("Bcc", m.Bcc)
	}
	h.SetSubject(m.Subject)
	if m.Date.IsZero() {
		m.Date = time.Now()
	}
	h.SetDate(m.Date)
	h.Set("MIME-Version", "1.0")
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	if m.HTML == "" {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		if err := writeSingle(&buf, h, m.Text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	text := m.Text
	if text == "" {
		var err error
		if text, err = htmlToText(m.HTML); err != nil {
			return nil, err
		}
	}
	if err := writeAlternative(&buf, h, text, m.HTML); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSingle(w io.Writer, h mail.Header, body string) error {
	bw, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(bw, body); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	return bw.Close()
}

func writeAlternative(w io.Writer, h mail.Header, text, htmlBody string) error {
	iw, err := mail.CreateInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}

	parts := []struct {
		mediaType string
		body      string
	}{
		{"text/plain", text},
		{"text/html", htmlBody},
	}
	for _, p := range parts {
		var ph mail.InlineHeader
		ph.SetContentType(p.mediaType, map[string]string{"charset": "utf-8"})
		pw, err := iw.CreatePart(ph)
		if err != nil {
			return fmt.Errorf("creating %s part: %w", p.mediaType, err)
		}
		if _, err := io.WriteString(pw, p.body); err != nil {
			return fmt.Errorf("writing %s part: %w", p.mediaType, err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("closing %s part: %w", p.mediaType, err)
		}
	}
	return iw.Close()
}

// EncodeRaw encodes a composed message for the Gmail raw field: base64
// with the URL-safe alphabet and no padding.
func EncodeRaw(msg []byte) string {
	return base64.RawURLEncoding.EncodeToString(msg)
}

// sourceBreaks turns line breaks in HTML source into plain spaces; only
// markup decides where text lines end.
var sourceBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// htmlToText flattens an HTML body into readable plain text, keeping
// block boundaries as line breaks.
func htmlToText(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parsing html body: %w", err)
	}

	doc.Find("script, style, head").Remove()
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			n := s.Get(0)
			n.Data = sourceBreaks.Replace(n.Data)
		}
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href != "" && strings.TrimSpace(s.Text()) != href {
			s.AppendHtml(" (" + html.EscapeString(href) + ")")
		}
	})

	var lines []string
	blank := false
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(lines) > 0 {
				lines = append(lines, "")
			}
			blank = true
			continue
		}
		lines = append(lines, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
