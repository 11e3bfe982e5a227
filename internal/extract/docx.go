package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

const docxBody = "word/document.xml"

// docxText extracts paragraph text from word/document.xml, including paragraphs nested in
// tables. Paragraphs styled as headings or titles come out as "#" headings.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return "", errMissingDocument
}

func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		para       strings.Builder
		level      int
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
				level = 0
			case "pStyle":
				level = headingStyleLevel(attrValue(t, "val"))
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				line := strings.TrimSpace(para.String())
				if line == "" {
					continue
				}
				if level > 0 {
					line = strings.Repeat("#", level) + " " + line
				}
				paragraphs = append(paragraphs, line)
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// headingStyleLevel maps Word paragraph style ids like "Heading2" or "Title" to a heading level.
func headingStyleLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case s == "title":
		return 1
	case strings.HasPrefix(s, "heading"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
		if err != nil || n < 1 {
			return 0
		}
		return min(n, 6)
	}
	return 0
}
