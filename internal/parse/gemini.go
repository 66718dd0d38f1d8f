package parse

import (
	"encoding/json"
	"fmt"

	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
)

// geminiSession is the whole-file JSON blob of a Gemini chat session.
type geminiSession struct {
	SessionID string          `json:"sessionId"`
	Messages  []geminiMessage `json:"messages"`
}

type geminiMessage struct {
	ID        string           `json:"id"`
	Timestamp string           `json:"timestamp"`
	Type      string           `json:"type"`
	Content   string           `json:"content"`
	Thoughts  string           `json:"thoughts"`
	Model     string           `json:"model"`
	Tokens    *geminiTokens    `json:"tokens"`
	ToolCalls []geminiToolCall `json:"toolCalls"`
}

type geminiTokens struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
}

type geminiToolCall struct {
	Name       string          `json:"name"`
	Args       json.RawMessage `json:"args"`
	Result     json.RawMessage `json:"result"`
	Status     string          `json:"status"`
	DurationMs *int64          `json:"durationMs"`
}

// parseGemini reads a whole-file Gemini session blob. One logical turn can
// expand into several canonical messages: thinking from the thoughts
// field, the turn text itself, and a tool_use/tool_result pair per
// recorded tool call.
func parseGemini(fs fsys.FS, df model.DiscoveredFile) Result {
	data, err := fs.ReadFile(df.Path)
	if err != nil {
		return Result{}
	}
	var sess geminiSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return Result{ParseErrors: 1}
	}

	var (
		messages   []model.Message
		modelNames []string
	)
	for i, gm := range sess.Messages {
		createdAt := parseTimeMs(gm.Timestamp)
		if gm.Model != "" {
			modelNames = append(modelNames, gm.Model)
		}
		baseID := gm.ID
		if baseID == "" {
			baseID = fmt.Sprintf("%s:%d", df.SourceSessionID, i)
		}
		part := 0
		emit := func(m model.Message) {
			m.SessionID = df.SessionKey
			m.Provider = model.ProviderGemini
			m.CreatedAt = createdAt
			m.SourceID = baseID
			if part > 0 {
				m.SourceID = fmt.Sprintf("%s#%d", baseID, part)
			}
			part++
			messages = append(messages, m)
		}

		if gm.Thoughts != "" {
			emit(model.Message{Category: model.CategoryThinking, Content: gm.Thoughts})
		}

		cat := model.CategoryUser
		switch gm.Type {
		case "gemini", "assistant", "model":
			cat = model.CategoryAssistant
		case "system", "info", "error":
			cat = model.CategorySystem
		}
		if gm.Content != "" || len(gm.ToolCalls) == 0 {
			m := model.Message{Category: cat, Content: gm.Content}
			if gm.Tokens != nil {
				m.TokenInput = ptr(gm.Tokens.Input)
				m.TokenOutput = ptr(gm.Tokens.Output)
			}
			emit(m)
		}

		for _, tc := range gm.ToolCalls {
			args := string(tc.Args)
			call := model.Message{
				Category: classifyTool(tc.Name, args),
				Content:  args,
				ToolCall: &model.ToolCall{Name: tc.Name, Input: args, DurationMs: tc.DurationMs},
			}
			if tc.DurationMs != nil {
				call.DurationMs = tc.DurationMs
				call.DurationSource = model.DurationMeasured
				call.DurationConfidence = model.ConfidenceHigh
			}
			emit(call)

			if len(tc.Result) > 0 {
				result := rawContentText(tc.Result)
				emit(model.Message{
					Category: model.CategoryToolResult,
					Content:  result,
					ToolCall: &model.ToolCall{Name: tc.Name, Result: result},
				})
			}
		}
	}

	return finalize(messages, modelNames)
}
