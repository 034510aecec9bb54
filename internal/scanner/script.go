package scanner

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ScriptExtractor reads ES module imports with tree-sitter. Static imports and
// re-exports are eager; dynamic import() calls are lazy. Bare package specifiers
// are not part of the document graph and are skipped.
type ScriptExtractor struct {
	grammar string
	lang    *sitter.Language

	once     sync.Once
	query    *sitter.Query
	queryErr error
}

func NewJavaScriptExtractor() *ScriptExtractor {
	return &ScriptExtractor{
		grammar: "javascript",
		lang:    sitter.NewLanguage(tree_sitter_javascript.Language()),
	}
}

func NewTypeScriptExtractor() *ScriptExtractor {
	return &ScriptExtractor{
		grammar: "typescript",
		lang:    sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
	}
}

func NewTSXExtractor() *ScriptExtractor {
	return &ScriptExtractor{
		grammar: "typescript",
		lang:    sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
	}
}

func (e *ScriptExtractor) compile() (*sitter.Query, error) {
	e.once.Do(func() {
		q, qerr := sitter.NewQuery(e.lang, Queries[e.grammar])
		if qerr != nil {
			e.queryErr = errors.Newf("invalid %s import query: %s", e.grammar, qerr.Error())
			return
		}
		e.query = q
	})
	return e.query, e.queryErr
}

func (e *ScriptExtractor) Extract(path string, content []byte) ([]Import, error) {
	located, err := e.Locate(path, content)
	if err != nil {
		return nil, err
	}
	imports := make([]Import, len(located))
	for i, l := range located {
		imports[i] = l.Import
	}
	return imports, nil
}

// Locate is Extract with source positions. For static imports and re-exports
// the statement range covers the whole statement; for dynamic imports it
// equals the specifier range.
func (e *ScriptExtractor) Locate(path string, content []byte) ([]Located, error) {
	query, err := e.compile()
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.lang); err != nil {
		return nil, errors.Wrapf(err, "failed to load %s grammar", e.grammar)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.Newf("failed to parse %s", path)
	}
	defer tree.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var all []Located
	names := query.CaptureNames()
	matches := cursor.Matches(query, tree.RootNode(), content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var (
			l       Located
			matched bool
			stmt    *sitter.Node
		)
		for _, capture := range match.Captures {
			name := names[capture.Index]
			if strings.HasSuffix(name, ".stmt") {
				stmt = &capture.Node
				continue
			}
			lazy, ok := captureLazy[name]
			if !ok {
				continue
			}
			spec := capture.Node.Utf8Text(content)
			if !isRelativeSpecifier(spec) {
				continue
			}
			l.Import = Import{Href: spec, Lazy: lazy}
			l.SpecStart, l.SpecEnd = capture.Node.StartByte(), capture.Node.EndByte()
			matched = true
		}
		if !matched {
			continue
		}
		l.Start, l.End = l.SpecStart, l.SpecEnd
		if stmt != nil {
			l.Start, l.End = stmt.StartByte(), stmt.EndByte()
		}
		all = append(all, l)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].SpecStart < all[j].SpecStart })
	return all, nil
}

func isRelativeSpecifier(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}
