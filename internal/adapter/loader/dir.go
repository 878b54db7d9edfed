package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"ragpipe/internal/domain"
)

// DirLoader walks a directory tree and loads every matched file.
// Include and exclude patterns are doublestar globs matched against
// paths relative to the walk root. Files that yield no text are
// skipped; the walk fails only when nothing loadable is found.
type DirLoader struct {
	includes []string
	excludes []string
	txt      *TextLoader
	pdf      *PDFLoader
}

func NewDirLoader(includes, excludes []string) *DirLoader {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &DirLoader{
		includes: includes,
		excludes: excludes,
		txt:      NewTextLoader(),
		pdf:      NewPDFLoader(),
	}
}

func (l *DirLoader) Load(source string) ([]domain.Document, error) {
	root, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", domain.ErrLoad, source, err)
	}

	var docs []domain.Document

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && l.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !l.shouldInclude(relPath) || l.shouldExclude(relPath) {
			return nil
		}

		var fileDocs []domain.Document
		if isPDF(path) {
			fileDocs, err = l.pdf.Load(path)
		} else {
			fileDocs, err = l.txt.Load(path)
		}
		if err != nil {
			// Empty or unparsable files do not abort the walk.
			return nil
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", domain.ErrLoad, source, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no loadable files under %s", domain.ErrLoad, source)
	}

	return docs, nil
}

func (l *DirLoader) shouldInclude(path string) bool {
	for _, pattern := range l.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (l *DirLoader) shouldExclude(path string) bool {
	for _, pattern := range l.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
