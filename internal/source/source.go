package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
)

// TextExtractor is the recognition collaborator contract: turn a reference to
// a scanned receipt into its plain-text transcript, or fail. The pipeline
// tolerates both an error and an empty transcript.
type TextExtractor interface {
	ExtractText(ref string) (string, error)
}

// FileSource resolves local files by extension: .txt transcripts, text-layer
// PDFs, HTML receipts, and emailed receipts (.eml). Image formats are not
// handled here; a real OCR backend plugs in behind the same interface.
type FileSource struct{}

func (FileSource) ExtractText(ref string) (string, error) {
	blob, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(ref)) {
	case ".txt", "":
		return string(blob), nil
	case ".pdf":
		return pdfText(blob)
	case ".html", ".htm":
		return htmlText(blob)
	case ".eml":
		return emlText(blob)
	default:
		return "", fmt.Errorf("unsupported receipt source: %s", ref)
	}
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func emlText(content []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(env.Text) != "" {
		return env.Text, nil
	}
	if env.HTML != "" {
		return htmlText([]byte(env.HTML))
	}
	return "", nil
}
