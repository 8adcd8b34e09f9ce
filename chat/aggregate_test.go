package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/model"
)

func answer(s string) core.StreamChunk    { return core.StreamChunk{Type: core.ChunkAnswer, Content: s} }
func reasoning(s string) core.StreamChunk { return core.StreamChunk{Type: core.ChunkReasoning, Content: s} }
func toolChunk(s string) core.StreamChunk { return core.StreamChunk{Type: core.ChunkTool, Content: s} }

// -------------------- coalesce --------------------

func TestCoalesce_MergesAdjacentAnswers(t *testing.T) {
	out := coalesce([]core.StreamChunk{answer("Hi"), answer(" there")})
	assert.Equal(t, []core.StreamChunk{answer("Hi there")}, out)
}

func TestCoalesce_ToolBreaksAnswerRun(t *testing.T) {
	in := []core.StreamChunk{answer("Hi"), toolChunk("[x] in/out"), answer(" there")}
	out := coalesce(in)
	assert.Equal(t, in, out)
}

func TestCoalesce_Empty(t *testing.T) {
	assert.Nil(t, coalesce(nil))
}

func TestCoalesce_Invariants(t *testing.T) {
	inputs := [][]core.StreamChunk{
		{answer("a"), answer("b"), answer("c")},
		{toolChunk("t1"), toolChunk("t2")},
		{answer("a"), toolChunk("t"), answer("b"), answer("c"), toolChunk("t2"), answer("d")},
		{toolChunk("t"), answer("a")},
		{answer(""), answer("x")},
	}
	for _, in := range inputs {
		out := coalesce(in)

		// No two adjacent answer chunks survive.
		for i := 1; i < len(out); i++ {
			adjacent := out[i-1].Type == core.ChunkAnswer && out[i].Type == core.ChunkAnswer
			assert.False(t, adjacent, "adjacent answers in %v", out)
		}

		// Answer text is preserved in order.
		var wantText, gotText strings.Builder
		for _, c := range in {
			if c.Type == core.ChunkAnswer {
				wantText.WriteString(c.Content)
			}
		}
		for _, c := range out {
			if c.Type == core.ChunkAnswer {
				gotText.WriteString(c.Content)
			}
		}
		assert.Equal(t, wantText.String(), gotText.String())

		// Tool chunks survive unchanged and in order.
		var wantTools, gotTools []string
		for _, c := range in {
			if c.Type == core.ChunkTool {
				wantTools = append(wantTools, c.Content)
			}
		}
		for _, c := range out {
			if c.Type == core.ChunkTool {
				gotTools = append(gotTools, c.Content)
			}
		}
		assert.Equal(t, wantTools, gotTools)
	}
}

// -------------------- aggregator --------------------

func TestAggregator_ReasoningLeadsParts(t *testing.T) {
	agg := &aggregator{}
	agg.observe(reasoning("thinking "))
	agg.observe(answer("Hello"))
	agg.observe(reasoning("more"))
	agg.observe(toolChunk("[t] in/out"))
	agg.observe(answer(" world"))

	result := agg.result(nil, nil)
	assert.Equal(t, "Hello world", result.Response)
	assert.Equal(t, "thinking more", result.Reasoning)
	require.Len(t, result.Parts, 4)
	assert.Equal(t, reasoning("thinking more"), result.Parts[0])
	assert.Equal(t, answer("Hello"), result.Parts[1])
	assert.Equal(t, toolChunk("[t] in/out"), result.Parts[2])
	assert.Equal(t, answer(" world"), result.Parts[3])
}

func TestAggregator_PlainAnswerKeepsFlatTranscript(t *testing.T) {
	agg := &aggregator{}
	agg.observe(answer("Just"))
	agg.observe(answer(" text"))

	result := agg.result(nil, nil)
	assert.Equal(t, "Just text", result.Response)
	assert.Empty(t, result.Reasoning)
	assert.Nil(t, result.Parts)
	assert.Equal(t, "Just text", result.AssistantContent())
}

func TestAggregator_PartsRoundTrip(t *testing.T) {
	agg := &aggregator{}
	agg.observe(answer("Hi"))
	agg.observe(toolChunk("[lookup]\nInput: {}\nOutput: 42"))
	agg.observe(answer(" there"))

	result := agg.result(nil, nil)
	stored := result.AssistantContent()
	assert.True(t, strings.HasPrefix(stored, `{"parts":`))
	flat := core.FlattenParts(stored)
	assert.Contains(t, flat, "Hi")
	assert.Contains(t, flat, " there")
	assert.Contains(t, flat, "[Tool]")
}

// -------------------- classify --------------------

func TestClassify_ReasoningMetadataKeys(t *testing.T) {
	for _, key := range []string{"thinking", "reasoningContent", "reasoning_content", "reasoning"} {
		c := classify(model.Response{
			Partial:  true,
			Content:  core.TextContent(core.RoleAssistant, "ignored"),
			Metadata: map[string]string{key: "private"},
		})
		assert.Equal(t, core.ChunkReasoning, c.Type, key)
		assert.Equal(t, "private", c.Content, key)
	}
}

func TestClassify_SignatureMarksTextAsReasoning(t *testing.T) {
	c := classify(model.Response{
		Partial:  true,
		Content:  core.TextContent(core.RoleAssistant, "signed thought"),
		Metadata: map[string]string{"signature": "abc"},
	})
	assert.Equal(t, core.ChunkReasoning, c.Type)
	assert.Equal(t, "signed thought", c.Content)
}

func TestClassify_DefaultIsAnswer(t *testing.T) {
	c := classify(model.Response{
		Partial: true,
		Content: core.TextContent(core.RoleAssistant, "visible"),
	})
	assert.Equal(t, core.ChunkAnswer, c.Type)
	assert.Equal(t, "visible", c.Content)

	// Empty reasoning metadata does not reclassify.
	c = classify(model.Response{
		Partial:  true,
		Content:  core.TextContent(core.RoleAssistant, "visible"),
		Metadata: map[string]string{"reasoning": ""},
	})
	assert.Equal(t, core.ChunkAnswer, c.Type)
}
