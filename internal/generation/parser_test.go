package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parsedItem struct {
	Topic  string `json:"topic"`
	Action string `json:"action"`
}

func TestExtractJSON_FencedBlockWithProse(t *testing.T) {
	text := "Here is the plan you asked for:\n\n```json\n" +
		`[{"topic":"Fractions","action":"Practice 10 problems"}]` +
		"\n```\n\nLet me know if you need more detail."

	var items []parsedItem
	require.NoError(t, ExtractJSON(text, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Fractions", items[0].Topic)
}

func TestExtractJSON_BareJSON(t *testing.T) {
	var items []parsedItem
	require.NoError(t, ExtractJSON(`[{"topic":"Algebra","action":"Review"}]`, &items))
	require.Len(t, items, 1)
}

func TestExtractJSON_EmbeddedArrayInProse(t *testing.T) {
	text := `Based on the metrics, I suggest: [{"topic":"Optics","action":"Redo lab questions"}] — those two first.`

	var items []parsedItem
	require.NoError(t, ExtractJSON(text, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Optics", items[0].Topic)
}

func TestExtractJSON_ObjectWithNestedBrackets(t *testing.T) {
	text := `Result: {"by_subject":{"Math":[{"topic":"Sets","action":"Drill"}]}} done.`

	var out map[string]map[string][]parsedItem
	require.NoError(t, ExtractJSON(text, &out))
	require.Len(t, out["by_subject"]["Math"], 1)
}

func TestExtractJSON_TruncatedInputFails(t *testing.T) {
	var items []parsedItem
	err := ExtractJSON(`[{"topic":"Algebra","action":"Rev`, &items)
	assert.Error(t, err)
	assert.Empty(t, items)
}

func TestExtractJSON_NoJSONAtAll(t *testing.T) {
	var items []parsedItem
	assert.Error(t, ExtractJSON("I could not produce a plan this time.", &items))
}

func TestStringList_Shapes(t *testing.T) {
	type doc struct {
		Tags StringList `json:"tags"`
	}

	t.Run("Array", func(t *testing.T) {
		var d doc
		require.NoError(t, ExtractJSON(`{"tags":["a","b"]}`, &d))
		assert.Equal(t, StringList{"a", "b"}, d.Tags)
	})

	t.Run("DelimitedString", func(t *testing.T) {
		var d doc
		require.NoError(t, ExtractJSON(`{"tags":"use flashcards; review notes, redo quiz"}`, &d))
		assert.Equal(t, StringList{"use flashcards", "review notes", "redo quiz"}, d.Tags)
	})

	t.Run("EmptyEntriesDropped", func(t *testing.T) {
		var d doc
		require.NoError(t, ExtractJSON(`{"tags":"a,, ,b"}`, &d))
		assert.Equal(t, StringList{"a", "b"}, d.Tags)
	})
}

func TestIntList_Shapes(t *testing.T) {
	type doc struct {
		Citation IntList `json:"citation"`
	}

	var d doc
	require.NoError(t, ExtractJSON(`{"citation":[3,7]}`, &d))
	assert.Equal(t, IntList{3, 7}, d.Citation)

	d = doc{}
	require.NoError(t, ExtractJSON(`{"citation":"12, 14"}`, &d))
	assert.Equal(t, IntList{12, 14}, d.Citation)

	d = doc{}
	require.NoError(t, ExtractJSON(`{"citation":["5","x","9"]}`, &d))
	assert.Equal(t, IntList{5, 9}, d.Citation)
}
