package scanner

import (
	"path/filepath"
	"strings"
)

// Dispatch selects an Extractor by file extension. Files with an unknown
// extension declare no imports.
type Dispatch map[string]Extractor

// DefaultDispatch handles HTML documents and JavaScript/TypeScript modules.
func DefaultDispatch() Dispatch {
	html := HTMLExtractor{}
	js := NewJavaScriptExtractor()
	return Dispatch{
		".html": html,
		".htm":  html,
		".js":   js,
		".mjs":  js,
		".jsx":  js,
		".ts":   NewTypeScriptExtractor(),
		".tsx":  NewTSXExtractor(),
	}
}

func (d Dispatch) Extract(path string, content []byte) ([]Import, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := d[ext]
	if !ok {
		return nil, nil
	}
	return extractor.Extract(path, content)
}

// Locate reports import positions for files whose extractor supports it, and
// nothing for the rest.
func (d Dispatch) Locate(path string, content []byte) ([]Located, error) {
	extractor, ok := d[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}
	locator, ok := extractor.(Locator)
	if !ok {
		return nil, nil
	}
	return locator.Locate(path, content)
}
