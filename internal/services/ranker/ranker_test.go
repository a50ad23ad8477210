package ranker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/seeker/internal/models"
)

func page(title, meta string, headers []string, body string) *models.PageRecord {
	return &models.PageRecord{
		Title:           title,
		MetaDescription: meta,
		Headers:         headers,
		BodyText:        body,
	}
}

func TestFindMatches_CaseInsensitiveNonOverlapping(t *testing.T) {
	p := page("", "", nil, "Golang and golang and GOLANG")

	matches := FindMatches(p, "golang")
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].Position)
	assert.Equal(t, 11, matches[1].Position)
	assert.Equal(t, 22, matches[2].Position)
}

func TestFindMatches_NoOverlap(t *testing.T) {
	p := page("", "", nil, "aaaa")

	matches := FindMatches(p, "aa")
	// Occurrences advance past each full match
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Position)
	assert.Equal(t, 2, matches[1].Position)
}

func TestFindMatches_ContextWindow(t *testing.T) {
	prefix := strings.Repeat("x", 150)
	suffix := strings.Repeat("y", 150)
	p := page("", "", nil, prefix+"needle"+suffix)

	matches := FindMatches(p, "needle")
	require.Len(t, matches, 1)

	// 100 chars each side plus the query itself
	assert.Len(t, matches[0].Context, 100+len("needle")+100)
	assert.Contains(t, matches[0].Context, "needle")
}

func TestFindMatches_ContextClampedAtEdges(t *testing.T) {
	p := page("", "", nil, "needle at the start")

	matches := FindMatches(p, "needle")
	require.Len(t, matches, 1)
	assert.True(t, strings.HasPrefix(matches[0].Context, "needle"))
}

func TestFindMatches_ContextKeepsOriginalCase(t *testing.T) {
	p := page("", "", nil, "The Needle Is Here")

	matches := FindMatches(p, "needle")
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Context, "Needle")
}

func TestFindMatches_HeaderBoost(t *testing.T) {
	body := "filler text then the query word appears"
	boosted := page("", "", []string{"About the Query"}, body)
	plain := page("", "", []string{"Unrelated"}, body)

	mb := FindMatches(boosted, "query")
	mp := FindMatches(plain, "query")
	require.Len(t, mb, 1)
	require.Len(t, mp, 1)

	assert.InDelta(t, mp[0].LocalScore*1.5, mb[0].LocalScore, 1e-9)
}

func TestFindMatches_EarlierMatchScoresHigher(t *testing.T) {
	p := page("", "", nil, "term "+strings.Repeat("pad ", 50)+"term")

	matches := FindMatches(p, "term")
	require.Len(t, matches, 2)
	assert.Greater(t, matches[0].LocalScore, matches[1].LocalScore)
}

func TestFindMatches_Empty(t *testing.T) {
	assert.Nil(t, FindMatches(nil, "query"))
	assert.Nil(t, FindMatches(page("", "", nil, ""), "query"))
	assert.Nil(t, FindMatches(page("", "", nil, "body"), "  "))
	assert.Nil(t, FindMatches(page("", "", nil, "no occurrence"), "absent"))
}

func TestBuildResult_NilWhenNoMatch(t *testing.T) {
	p := page("Query In Title", "query in meta", []string{"query header"}, "but the body never mentions it")
	assert.Nil(t, BuildResult("https://example.com/", p, "query"))
}

func TestBuildResult_FullMatchEverywhere(t *testing.T) {
	p := page(
		"All about query handling",
		"The query explained",
		[]string{"Understanding query basics"},
		"query is the very first word of this page body",
	)

	r := BuildResult("https://example.com/doc", p, "query")
	require.NotNil(t, r)

	assert.Equal(t, "https://example.com/doc", r.URL)
	assert.Equal(t, "All about query handling", r.Title)
	assert.Equal(t, 1, r.Count)
	assert.Contains(t, strings.ToLower(r.Context), "query")

	// title 3 + meta 2 + headers 1.5 + content 1 + position 0.5 = 8 max
	assert.InDelta(t, 8.0, r.Relevance, 1e-9)
}

func TestBuildResult_TitleWeightDominates(t *testing.T) {
	inTitle := page("the query lives here", "", nil, "query appears once")
	inMeta := page("nothing relevant", "the query lives here", nil, "query appears once")

	rt := BuildResult("u", inTitle, "query")
	rm := BuildResult("u", inMeta, "query")
	require.NotNil(t, rt)
	require.NotNil(t, rm)

	assert.Greater(t, rt.Relevance, rm.Relevance)
}

func TestBuildResult_PartialWordOverlap(t *testing.T) {
	// Title has one of two query words
	p := page("go tutorial", "", nil, "go concurrency explained with examples of go concurrency")

	r := BuildResult("u", p, "go concurrency")
	require.NotNil(t, r)
	assert.Equal(t, 2, r.Count)
	assert.Greater(t, r.Relevance, 0.0)
}

func TestBuildResult_SubstringTokensDoNotCount(t *testing.T) {
	body := "cat dog appears here exactly once"
	embedded := page("catalog of things", "", nil, body)
	unrelated := page("unrelated words entirely", "", nil, body)

	re := BuildResult("u", embedded, "cat dog")
	ru := BuildResult("u", unrelated, "cat dog")
	require.NotNil(t, re)
	require.NotNil(t, ru)

	// "cat" inside "catalog" is not a title token, so neither title
	// overlaps the query and both pages score the same
	assert.Equal(t, ru.Relevance, re.Relevance)
}

func TestBuildResult_WholeTokenOverlapCounts(t *testing.T) {
	body := "cat dog appears here exactly once"
	half := page("cat pictures", "", nil, body)
	none := page("unrelated words entirely", "", nil, body)

	rh := BuildResult("u", half, "cat dog")
	rn := BuildResult("u", none, "cat dog")
	require.NotNil(t, rh)
	require.NotNil(t, rn)

	assert.Greater(t, rh.Relevance, rn.Relevance)
}

func TestBuildResult_CountsAllOccurrences(t *testing.T) {
	p := page("", "", nil, "alpha beta alpha gamma alpha")

	r := BuildResult("u", p, "alpha")
	require.NotNil(t, r)
	assert.Equal(t, 3, r.Count)
}

func TestBuildResult_ContextFromBestMatch(t *testing.T) {
	// First match sits early in the body and its page headers mention the
	// query, so the earliest occurrence carries the highest local score
	body := "the term opens this page " + strings.Repeat("pad ", 80) + "and the term closes it"
	p := page("", "", []string{"term"}, body)

	r := BuildResult("u", p, "term")
	require.NotNil(t, r)
	assert.True(t, strings.HasPrefix(r.Context, "the term opens"))
}

func TestBuildResult_RelevanceRounded(t *testing.T) {
	p := page("partial query words", "", nil, "some query content here")

	r := BuildResult("u", p, "query words")
	require.NotNil(t, r)

	rounded := float64(int(r.Relevance*100+0.5)) / 100
	assert.InDelta(t, rounded, r.Relevance, 1e-9)
}
