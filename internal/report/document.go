package report

import (
	"bytes"
	"fmt"
	"strings"
)

// The document format is a deliberately minimal PDF 1.4 file: Courier text
// laid out line by line, one content stream per page, with a correct xref
// table so standard viewers accept it. It wraps the plain-text rendering and
// makes no attempt at typesetting.

const (
	pdfLinesPerPage = 54
	pdfLineWidth    = 78
)

func renderDocument(text string) []byte {
	pages := paginateLines(wrapLines(text), pdfLinesPerPage)
	if len(pages) == 0 {
		pages = [][]string{{""}}
	}

	// Objects: 1 catalog, 2 page tree, 3 font, then a page and a content
	// stream per page.
	objCount := 3 + 2*len(pages)
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	var buf bytes.Buffer
	offsets := make([]int, objCount+1)
	writeObj := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Courier >>")
	for i, page := range pages {
		content := pageStream(page)
		writeObj(4+2*i, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i))
		writeObj(5+2*i, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", objCount+1)
	for n := 1; n <= objCount; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		objCount+1, xref)
	return buf.Bytes()
}

func pageStream(lines []string) string {
	var b strings.Builder
	b.WriteString("BT\n/F1 10 Tf\n12 TL\n72 760 Td\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("T*\n")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escapePDFText(line))
	}
	b.WriteString("ET\n")
	return b.String()
}

// wrapLines splits the text into Courier-width page lines.
func wrapLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > pdfLineWidth {
			out = append(out, line[:pdfLineWidth])
			line = line[pdfLineWidth:]
		}
		out = append(out, line)
	}
	// Split always yields a trailing empty line for LF-terminated text.
	if n := len(out); n > 0 && out[n-1] == "" {
		out = out[:n-1]
	}
	return out
}

func paginateLines(lines []string, perPage int) [][]string {
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}

// escapePDFText escapes the PDF string delimiters and replaces anything
// outside printable ASCII, which the standard Courier encoding cannot carry.
func escapePDFText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 32 || r > 126:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
