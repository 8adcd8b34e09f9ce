package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/model"
	"github.com/coterie-ai/coterie/tool"
)

// runTurn drives one full model turn including the tool-call loop: generate,
// emit classified chunks, execute requested function calls, feed the
// responses back and generate again until a final response with no pending
// calls. Tool errors propagate to the caller, which converts them into an
// error-result turn.
func (s *Service) runTurn(ctx context.Context, mdl model.Model, req model.Request,
	byName map[string]tool.Tool, emit func(core.StreamChunk) bool) error {

	contents := req.Contents
	for {
		stepReq := req
		stepReq.Contents = contents

		start := time.Now()
		respCh, errCh := mdl.Generate(ctx, stepReq)

		var final *model.Response
		sawAnswer := false
		for resp := range respCh {
			if resp.Partial {
				c := classify(resp)
				if c.Content == "" {
					continue
				}
				if c.Type == core.ChunkAnswer {
					sawAnswer = true
				}
				if !emit(c) {
					return ctx.Err()
				}
				continue
			}
			r := resp
			final = &r
		}
		genErr := <-errCh
		s.logger.LogModelCall(mdl.Info().Provider, time.Since(start), genErr)
		if genErr != nil {
			return genErr
		}
		if final == nil {
			return errors.New("model stream ended without a final response")
		}

		// Streaming steps deliver answer text via partials; the final text
		// is only emitted here on the non-streaming fallback path.
		if !sawAnswer {
			if c := classify(*final); c.Content != "" {
				if !emit(c) {
					return ctx.Err()
				}
			}
		}

		calls := final.Content.FunctionCalls()
		if len(calls) == 0 {
			return nil
		}

		contents = append(contents, final.Content)
		toolContent := core.Content{Role: core.RoleTool}
		for _, call := range calls {
			t, ok := byName[call.Name]
			if !ok {
				return fmt.Errorf("model requested unknown tool %q", call.Name)
			}
			callStart := time.Now()
			output, err := t.Call(ctx, call.Arguments)
			s.logger.LogToolCall(call.Name, time.Since(callStart), err)
			if err != nil {
				return err
			}
			toolContent.Parts = append(toolContent.Parts, core.FunctionResponsePart{
				FunctionResponse: core.FunctionResponse{ID: call.ID, Name: call.Name, Output: output},
			})
		}
		contents = append(contents, toolContent)
	}
}
