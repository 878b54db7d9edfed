package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragpipe/internal/domain"
)

// PDFLoader extracts text page by page, producing one document per
// page so chunks keep their page number for citation.
type PDFLoader struct{}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

func (l *PDFLoader) Load(source string) ([]domain.Document, error) {
	f, reader, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf %s: %v", domain.ErrLoad, source, err)
	}
	defer f.Close()

	var docs []domain.Document

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, domain.Document{
			ID:     generateDocID(fmt.Sprintf("%s:%d", source, pageNum)),
			Source: source,
			Text:   text,
			Metadata: map[string]string{
				"source": source,
				"page":   strconv.Itoa(pageNum),
			},
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no text extracted from %s", domain.ErrLoad, source)
	}

	return docs, nil
}
