package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJavaScriptExtractor(t *testing.T) {
	src := `
import { a } from './a.js';
import 'lodash';
import './side-effect.js';
export { b } from '../shared/b.js';

export async function open() {
	const view = await import('./views/lazy.js');
	return view;
}
`
	got, err := NewJavaScriptExtractor().Extract("app.js", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []Import{
		{Href: "./a.js"},
		{Href: "./side-effect.js"},
		{Href: "../shared/b.js"},
		{Href: "./views/lazy.js", Lazy: true},
	}, got)
}

func TestTypeScriptExtractor(t *testing.T) {
	src := `
import type { Props } from './types';
import { render } from '/lib/render.ts';

const Page = () => import('./page.ts');
`
	got, err := NewTypeScriptExtractor().Extract("main.ts", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []Import{
		{Href: "./types"},
		{Href: "/lib/render.ts"},
		{Href: "./page.ts", Lazy: true},
	}, got)
}

func TestScriptExtractorIgnoresComputedImports(t *testing.T) {
	src := "const name = './x.js';\nimport(name);\n"
	got, err := NewJavaScriptExtractor().Extract("dyn.js", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScriptExtractorLocate(t *testing.T) {
	src := "import { x } from './dep.js';\nexport * from './re.js';\nconst v = import('./lazy.js');\n"
	got, err := DefaultDispatch().Locate("main.js", []byte(src))
	require.NoError(t, err)
	require.Len(t, got, 3)

	text := func(start, end uint) string { return src[start:end] }
	assert.Equal(t, "import { x } from './dep.js';", text(got[0].Start, got[0].End))
	assert.Equal(t, "./dep.js", text(got[0].SpecStart, got[0].SpecEnd))
	assert.Equal(t, "export * from './re.js';", text(got[1].Start, got[1].End))
	assert.Equal(t, "./re.js", text(got[1].SpecStart, got[1].SpecEnd))
	assert.True(t, got[2].Lazy)
	assert.Equal(t, "./lazy.js", text(got[2].Start, got[2].End))

	none, err := DefaultDispatch().Locate("index.html", []byte(`<link rel="import" href="a.html">`))
	require.NoError(t, err)
	assert.Empty(t, none)
}
