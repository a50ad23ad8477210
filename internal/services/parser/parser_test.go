package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestService() *Service {
	return NewService(arbor.NewLogger())
}

func TestParse_FullDocument(t *testing.T) {
	html := `<html>
<head>
	<title>Go Concurrency Patterns</title>
	<meta name="description" content="Patterns for concurrent Go programs">
</head>
<body>
	<h1>Concurrency</h1>
	<h2>Channels</h2>
	<h3>Select</h3>
	<p>Goroutines are lightweight.</p>
	<div>Channels connect goroutines.</div>
</body>
</html>`

	record, err := newTestService().Parse(html)
	require.NoError(t, err)

	assert.Equal(t, "Go Concurrency Patterns", record.Title)
	assert.Equal(t, "Patterns for concurrent Go programs", record.MetaDescription)
	assert.Equal(t, []string{"Concurrency", "Channels", "Select"}, record.Headers)
	assert.Contains(t, record.BodyText, "Goroutines are lightweight.")
	assert.Contains(t, record.BodyText, "Channels connect goroutines.")
}

func TestParse_TitleFallsBackToH1(t *testing.T) {
	html := `<html><body><h1>Fallback Heading</h1><p>text</p></body></html>`

	record, err := newTestService().Parse(html)
	require.NoError(t, err)
	assert.Equal(t, "Fallback Heading", record.Title)
}

func TestParse_TitleFallsBackToUntitled(t *testing.T) {
	html := `<html><body><p>no title anywhere</p></body></html>`

	record, err := newTestService().Parse(html)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", record.Title)
}

func TestParse_StripsNonContent(t *testing.T) {
	html := `<html><body>
<script>var secret = "hidden";</script>
<style>.cls { color: red }</style>
<noscript>enable js</noscript>
<p>visible text</p>
</body></html>`

	record, err := newTestService().Parse(html)
	require.NoError(t, err)

	assert.Contains(t, record.BodyText, "visible text")
	assert.NotContains(t, record.BodyText, "secret")
	assert.NotContains(t, record.BodyText, "color: red")
	assert.NotContains(t, record.BodyText, "enable js")
}

func TestParse_DropsEmptyHeaders(t *testing.T) {
	html := `<html><body><h1>Real</h1><h2>   </h2><h3></h3><p>x</p></body></html>`

	record, err := newTestService().Parse(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"Real"}, record.Headers)
}

func TestParse_MemoizesIdenticalInput(t *testing.T) {
	s := newTestService()
	html := `<html><head><title>Memo</title></head><body><p>once</p></body></html>`

	first, err := s.Parse(html)
	require.NoError(t, err)
	second, err := s.Parse(html)
	require.NoError(t, err)

	// Same pointer proves the memoized record was returned
	assert.Same(t, first, second)
}

func TestParse_DifferentInputDifferentRecords(t *testing.T) {
	s := newTestService()

	a, err := s.Parse(`<html><head><title>A</title></head><body><p>a</p></body></html>`)
	require.NoError(t, err)
	b, err := s.Parse(`<html><head><title>B</title></head><body><p>b</p></body></html>`)
	require.NoError(t, err)

	assert.NotEqual(t, a.Title, b.Title)
}
