package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgs(contents ...string) []Message {
	out := make([]Message, 0, len(contents))
	for _, c := range contents {
		out = append(out, NewMessage(RoleUser, c))
	}
	return out
}

func TestTrimMessagesKeepsLongestSuffix(t *testing.T) {
	// lengths 5,5,5,5 oldest to newest with a budget of 12: the last two
	// fit (10), adding the third from the end would reach 15.
	items := msgs("aaaaa", "bbbbb", "ccccc", "ddddd")
	got := TrimMessages(items, 12)
	require.Len(t, got, 2)
	assert.Equal(t, "ccccc", got[0].Content)
	assert.Equal(t, "ddddd", got[1].Content)
}

func TestTrimMessagesNonPositiveBudget(t *testing.T) {
	items := msgs("aaaaa", "bbbbb")
	assert.Empty(t, TrimMessages(items, 0))
	assert.Empty(t, TrimMessages(items, -3))
}

func TestTrimMessagesEmptyInput(t *testing.T) {
	assert.Empty(t, TrimMessages(nil, 100))
	assert.Empty(t, TrimMessages([]Message{}, 100))
}

func TestTrimMessagesBudgetCoversAll(t *testing.T) {
	items := msgs("aa", "bb", "cc")
	got := TrimMessages(items, 6)
	assert.Equal(t, items, got)
	got = TrimMessages(items, 1000)
	assert.Equal(t, items, got)
}

func TestTrimMessagesEmptyContentCountsZero(t *testing.T) {
	items := msgs("aaaaa", "", "", "bbbbb")
	got := TrimMessages(items, 10)
	assert.Len(t, got, 4)
}

func TestTrimMessagesResultIsSuffix(t *testing.T) {
	items := msgs("one", "twotwo", "three", "x", "fourfourfour")
	for budget := -1; budget <= 30; budget++ {
		got := TrimMessages(items, budget)
		assert.LessOrEqual(t, len(got), len(items))
		if len(got) > 0 {
			assert.Equal(t, items[len(items)-len(got):], got, "budget %d", budget)
		}
	}
}

func TestTrimMessagesIdempotent(t *testing.T) {
	items := msgs("aaaa", "bbbb", "cccc", "dddd")
	first := TrimMessages(items, 9)
	again := TrimMessages(first, 9)
	assert.Equal(t, first, again)
	larger := TrimMessages(first, 50)
	assert.Equal(t, first, larger)
}

func TestTrimToBudgetGenericProjection(t *testing.T) {
	type entry struct{ body string }
	items := []entry{{strings.Repeat("x", 4)}, {strings.Repeat("y", 4)}}
	got := TrimToBudget(items, 4, func(e entry) string { return e.body })
	require.Len(t, got, 1)
	assert.Equal(t, items[1], got[0])
}
