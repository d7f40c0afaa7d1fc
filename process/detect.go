package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// isArchiveFile checks that file has zip extension and zip signature.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// enough for any signature filetype knows about
	header := make([]byte, 262)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return filetype.Is(header[:n], "zip"), nil
}

func isStylesheetFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".css")
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	charsetAt  = []byte(`@charset "`)
)

// declaredCharset returns encoding name from leading @charset rule. Rule has
// to be written exactly as `@charset "name";` to count.
func declaredCharset(data []byte) string {
	if !bytes.HasPrefix(data, charsetAt) {
		return ""
	}
	rest := data[len(charsetAt):]
	end := bytes.Index(rest, []byte(`";`))
	if end <= 0 {
		return ""
	}
	return string(rest[:end])
}

func isUTF8(enc encoding.Encoding) bool {
	name, err := ianaindex.IANA.Name(enc)
	return err == nil && strings.EqualFold(name, "UTF-8")
}

// decode returns stylesheet text in UTF-8. Source encoding is taken from BOM,
// then from @charset rule (WHATWG label), then fallback is used if not nil. Name of source
// encoding is returned when conversion took place.
func decode(data []byte, fallback encoding.Encoding) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "", nil
	case bytes.HasPrefix(data, bomUTF16BE), bytes.HasPrefix(data, bomUTF16LE):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return nil, "", fmt.Errorf("unable to decode UTF-16 stylesheet: %w", err)
		}
		name := "UTF-16BE"
		if bytes.HasPrefix(data, bomUTF16LE) {
			name = "UTF-16LE"
		}
		return out, name, nil
	}

	enc, name := fallback, ""
	// without BOM text declaring UTF-16 could only be ASCII compatible
	if label := declaredCharset(data); len(label) > 0 && !strings.HasPrefix(strings.ToLower(label), "utf-16") {
		// labels are resolved the way browsers do it
		declared, canonical := charset.Lookup(label)
		if declared == nil {
			return nil, "", fmt.Errorf("unknown stylesheet charset %q", label)
		}
		enc, name = declared, canonical
	}
	if enc == nil || isUTF8(enc) || strings.EqualFold(name, "utf-8") {
		return data, "", nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("unable to decode stylesheet: %w", err)
	}
	if len(name) == 0 {
		if name, err = ianaindex.IANA.Name(enc); err != nil {
			name = "unknown"
		}
	}
	return out, name, nil
}
