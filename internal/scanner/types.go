// Package scanner discovers the imports a source file declares and memoizes them
// per path for the duration of one build.
package scanner

// Import is one declared import link as written in the importing file.
type Import struct {
	Href string `json:"href"`
	Lazy bool   `json:"lazy"`
}

// Entry is the cached result for one file: its byte length and its imports in
// declaration order.
type Entry struct {
	Size    int      `json:"size"`
	Imports []Import `json:"imports"`
}

func (e Entry) clone() Entry {
	out := Entry{Size: e.Size}
	if e.Imports != nil {
		out.Imports = make([]Import, len(e.Imports))
		copy(out.Imports, e.Imports)
	}
	return out
}

// Extractor returns the imports declared by a file. It must be a pure function
// of path and content and safe for concurrent use.
type Extractor interface {
	Extract(path string, content []byte) ([]Import, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(path string, content []byte) ([]Import, error)

func (f ExtractorFunc) Extract(path string, content []byte) ([]Import, error) {
	return f(path, content)
}

// Located is an import together with where it is written. Offsets are byte
// offsets into the file content, end exclusive.
type Located struct {
	Import
	Start, End         uint
	SpecStart, SpecEnd uint
}

// Locator is implemented by extractors that can report import positions.
type Locator interface {
	Locate(path string, content []byte) ([]Located, error)
}
