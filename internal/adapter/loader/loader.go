package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragpipe/internal/domain"
)

// AutoLoader dispatches by source shape: directories walk the tree,
// .pdf files go through the PDF extractor, everything else is read as
// plain text.
type AutoLoader struct {
	dir *DirLoader
	txt *TextLoader
	pdf *PDFLoader
}

func NewAutoLoader(includes, excludes []string) *AutoLoader {
	return &AutoLoader{
		dir: NewDirLoader(includes, excludes),
		txt: NewTextLoader(),
		pdf: NewPDFLoader(),
	}
}

func (l *AutoLoader) Load(source string) ([]domain.Document, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrLoad, source, err)
	}
	if info.IsDir() {
		return l.dir.Load(source)
	}
	if isPDF(source) {
		return l.pdf.Load(source)
	}
	return l.txt.Load(source)
}

// FromString wraps a raw text blob as a single document.
func FromString(label, text string) (domain.Document, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, fmt.Errorf("%w: empty source %q", domain.ErrLoad, label)
	}
	return domain.Document{
		ID:       generateDocID(label),
		Source:   label,
		Text:     text,
		Metadata: map[string]string{"source": label},
	}, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func generateDocID(source string) string {
	hash := sha256.Sum256([]byte(source))
	return hex.EncodeToString(hash[:8])
}
