package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSourcePlainText(t *testing.T) {
	path := writeFixture(t, "receipt.txt", "01/15/2025 14:30\n1 Burger 10.00\n")

	text, err := FileSource{}.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "1 Burger 10.00") {
		t.Fatalf("text = %q", text)
	}
}

func TestFileSourceHTML(t *testing.T) {
	html := `<html><body>
<p>01/15/2025 14:30</p>
<table>
<tr><td>1 Burger 10.00</td></tr>
<tr><td>1 French Fries 5.00</td></tr>
</table>
<p>Subtotal 15.00</p>
<script>ignore()</script>
</body></html>`
	path := writeFixture(t, "receipt.html", html)

	text, err := FileSource{}.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}

	lines := []string{}
	for _, l := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(l); s != "" {
			lines = append(lines, s)
		}
	}

	joined := strings.Join(lines, "\n")
	for _, want := range []string{"1 Burger 10.00", "1 French Fries 5.00", "Subtotal 15.00"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
	if strings.Contains(joined, "ignore()") {
		t.Fatalf("script content leaked into transcript")
	}
	// Table rows must stay line-separated for the line-oriented extractor.
	if strings.Contains(joined, "Burger 10.00 1 French") {
		t.Fatalf("rows merged: %q", joined)
	}
}

func TestFileSourceEML(t *testing.T) {
	eml := "From: receipts@diner.example\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Your receipt\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"01/15/2025 14:30\r\n" +
		"1 Burger 10.00\r\n" +
		"Subtotal 10.00\r\n"
	path := writeFixture(t, "receipt.eml", eml)

	text, err := FileSource{}.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "1 Burger 10.00") {
		t.Fatalf("text = %q", text)
	}
}

func TestFileSourceUnsupported(t *testing.T) {
	path := writeFixture(t, "receipt.png", "binary")
	if _, err := (FileSource{}).ExtractText(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	if _, err := (FileSource{}).ExtractText(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
