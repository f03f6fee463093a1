package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core/normalize"
)

// officeParts maps a zipped office format to the member holding its body.
var officeParts = map[string]string{
	"docx": "word/document.xml",
	"odt":  "content.xml",
}

// OfficeText reads the body text of a DOCX or ODT document.
func OfficeText(data []byte, kind string) (string, error) {
	member, ok := officeParts[kind]
	if !ok {
		return "", eris.Wrapf(ErrUnsupportedOrEmpty, "extract: office kind %q", kind)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open office archive")
	}
	for _, f := range zr.File {
		if f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", eris.Wrapf(err, "extract: open %s", member)
		}
		defer rc.Close()
		return xmlText(rc)
	}
	return "", eris.Wrapf(ErrUnsupportedOrEmpty, "extract: %s missing", member)
}

// xmlText concatenates character data, breaking lines at paragraph and
// heading ends and spacing tabs and breaks.
func xmlText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", eris.Wrap(err, "extract: decode office xml")
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			switch t.Name.Local {
			case "tab", "s":
				sb.WriteByte(' ')
			case "br", "line-break", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "h":
				sb.WriteByte('\n')
			}
		}
	}
	return normalize.Text(sb.String()), nil
}
