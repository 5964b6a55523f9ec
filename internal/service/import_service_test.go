package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidHeader(t *testing.T) {
	assert.True(t, validHeader([]string{"text", "options", "answer", "explanation", "topic"}))
	assert.True(t, validHeader([]string{" Text ", "OPTIONS", "Answer", "Explanation", "Topic"}))

	assert.False(t, validHeader([]string{"text", "options", "answer", "explanation"}))
	assert.False(t, validHeader([]string{"question", "options", "answer", "explanation", "topic"}))
	assert.False(t, validHeader([]string{"options", "text", "answer", "explanation", "topic"}))
}

func TestParseOptionsJSONArray(t *testing.T) {
	options, err := parseOptions(`["Delhi", "Mumbai", "Chandigarh"]`)
	assert.NoError(t, err)
	assert.Equal(t, []string{"Delhi", "Mumbai", "Chandigarh"}, options)

	_, err = parseOptions(`["Delhi", "Mumbai"`)
	assert.Error(t, err)
}

func TestParseOptionsPipePreferredOverComma(t *testing.T) {
	options, err := parseOptions("1,024 MB | 1,000 MB | 512 MB")
	assert.NoError(t, err)
	assert.Equal(t, []string{"1,024 MB", "1,000 MB", "512 MB"}, options)

	options, err = parseOptions("Red, Green, Blue")
	assert.NoError(t, err)
	assert.Equal(t, []string{"Red", "Green", "Blue"}, options)
}

func TestParseOptionsRejectsTooFew(t *testing.T) {
	_, err := parseOptions("")
	assert.Error(t, err)

	_, err = parseOptions("only one")
	assert.Error(t, err)

	// Blank entries are dropped before counting.
	_, err = parseOptions("a, , ,")
	assert.Error(t, err)
}

func TestResolveAnswerAsIndex(t *testing.T) {
	options := []string{"a", "b", "c"}

	idx, err := resolveAnswer("2", options)
	assert.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = resolveAnswer("3", options)
	assert.Error(t, err)
	_, err = resolveAnswer("-1", options)
	assert.Error(t, err)
}

func TestResolveAnswerAsText(t *testing.T) {
	options := []string{"Haryana", "Punjab", "Rajasthan"}

	idx, err := resolveAnswer("punjab", options)
	assert.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = resolveAnswer("Kerala", options)
	assert.Error(t, err)
	_, err = resolveAnswer("", options)
	assert.Error(t, err)
}

func TestParseRow(t *testing.T) {
	q, err := parseRow([]string{"Capital of Haryana?", "Delhi|Chandigarh|Ambala", "Chandigarh", "Shared with Punjab.", "Geography"})
	assert.NoError(t, err)
	assert.Equal(t, "Capital of Haryana?", q.Text)
	assert.Equal(t, []string{"Delhi", "Chandigarh", "Ambala"}, q.Options)
	assert.Equal(t, 1, q.CorrectIndex)
	assert.Equal(t, "Geography", q.Topic)
	assert.Equal(t, "Shared with Punjab.", *q.Explanation)
}

func TestParseRowDefaults(t *testing.T) {
	q, err := parseRow([]string{"2+2?", "3|4", "1", "", ""})
	assert.NoError(t, err)
	assert.Equal(t, "General", q.Topic)
	assert.Nil(t, q.Explanation)
}

func TestParseRowRejectsBadRows(t *testing.T) {
	_, err := parseRow([]string{"too", "few", "columns"})
	assert.Error(t, err)

	_, err = parseRow([]string{"   ", "a|b", "0", "", "General"})
	assert.Error(t, err)

	_, err = parseRow([]string{"q?", "only one", "0", "", "General"})
	assert.Error(t, err)

	_, err = parseRow([]string{"q?", "a|b", "nope", "", "General"})
	assert.Error(t, err)
}
