package parse

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
)

// codexLine is one JSONL record of a Codex transcript: an envelope whose
// payload shape depends on the record type.
type codexLine struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// codexItem is the payload of a response_item record.
type codexItem struct {
	Type      string             `json:"type"`
	Role      string             `json:"role"`
	ID        string             `json:"id"`
	Content   []codexContentPart `json:"content"`
	Summary   []codexContentPart `json:"summary"`
	Name      string             `json:"name"`
	Arguments string             `json:"arguments"`
	CallID    string             `json:"call_id"`
	Output    string             `json:"output"`
}

type codexContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// codexTurnContext carries the model for subsequent turns.
type codexTurnContext struct {
	Model string `json:"model"`
}

// codexTokenCount is the payload of an event_msg token_count record.
type codexTokenCount struct {
	Type string `json:"type"`
	Info struct {
		LastTokenUsage struct {
			InputTokens  int64 `json:"input_tokens"`
			OutputTokens int64 `json:"output_tokens"`
		} `json:"last_token_usage"`
	} `json:"info"`
}

// parseCodex reads a Codex rollout transcript. Conversation turns arrive
// as response_item records; token counts arrive as separate event_msg
// records and are attached to the latest assistant message.
func parseCodex(fs fsys.FS, df model.DiscoveredFile) Result {
	f, err := fs.Open(df.Path)
	if err != nil {
		return Result{}
	}
	defer f.Close()

	var (
		messages      []model.Message
		modelNames    []string
		parseErrors   int
		cwd, branch   string
		lastAssistant = -1
		callIdx       = make(map[string]int)
		resultTimes   = make(map[string]int64)
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lineNo++
		var rec codexLine
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors++
			continue
		}
		createdAt := parseTimeMs(rec.Timestamp)

		switch rec.Type {
		case "session_meta":
			var meta struct {
				Cwd string `json:"cwd"`
				Git struct {
					Branch string `json:"branch"`
				} `json:"git"`
			}
			if err := json.Unmarshal(rec.Payload, &meta); err == nil {
				if cwd == "" {
					cwd = meta.Cwd
				}
				if branch == "" {
					branch = meta.Git.Branch
				}
			}

		case "turn_context":
			var tc codexTurnContext
			if err := json.Unmarshal(rec.Payload, &tc); err == nil && tc.Model != "" {
				modelNames = append(modelNames, tc.Model)
			}

		case "event_msg":
			var tok codexTokenCount
			if err := json.Unmarshal(rec.Payload, &tok); err != nil || tok.Type != "token_count" {
				continue
			}
			if lastAssistant < 0 {
				continue
			}
			u := tok.Info.LastTokenUsage
			messages[lastAssistant].TokenInput = ptr(u.InputTokens)
			messages[lastAssistant].TokenOutput = ptr(u.OutputTokens)

		case "response_item":
			var item codexItem
			if err := json.Unmarshal(rec.Payload, &item); err != nil {
				parseErrors++
				continue
			}
			m, ok := codexItemMessage(item)
			if !ok {
				continue
			}
			m.SessionID = df.SessionKey
			m.Provider = model.ProviderCodex
			m.CreatedAt = createdAt
			m.SourceID = item.ID
			if m.SourceID == "" {
				m.SourceID = codexSyntheticID(df.SourceSessionID, lineNo)
			}
			messages = append(messages, m)
			i := len(messages) - 1

			switch {
			case m.Category == model.CategoryAssistant:
				lastAssistant = i
			case item.Type == "function_call" && item.CallID != "":
				callIdx[item.CallID] = i
			case item.Type == "function_call_output" && item.CallID != "" && createdAt > 0:
				resultTimes[item.CallID] = createdAt
			}
		}
	}
	if err := scanner.Err(); err != nil {
		parseErrors++
	}

	pairToolDurations(messages, callIdx, resultTimes)
	res := finalize(messages, modelNames)
	res.ParseErrors = parseErrors
	res.Cwd = cwd
	res.GitBranch = branch
	return res
}

// codexItemMessage converts a response_item payload into a canonical
// message. Item types outside the conversation stream report ok=false.
func codexItemMessage(item codexItem) (model.Message, bool) {
	switch item.Type {
	case "message":
		cat := model.CategoryUser
		switch item.Role {
		case "assistant":
			cat = model.CategoryAssistant
		case "system", "developer":
			cat = model.CategorySystem
		}
		return model.Message{Category: cat, Content: joinParts(item.Content)}, true

	case "reasoning":
		text := joinParts(item.Summary)
		if text == "" {
			text = joinParts(item.Content)
		}
		if text == "" {
			return model.Message{}, false
		}
		return model.Message{Category: model.CategoryThinking, Content: text}, true

	case "function_call", "local_shell_call", "custom_tool_call":
		return model.Message{
			Category: classifyTool(item.Name, item.Arguments),
			Content:  item.Arguments,
			ToolCall: &model.ToolCall{Name: item.Name, Input: item.Arguments},
		}, true

	case "function_call_output", "custom_tool_call_output":
		return model.Message{
			Category: model.CategoryToolResult,
			Content:  item.Output,
			ToolCall: &model.ToolCall{Result: item.Output},
		}, true
	}
	return model.Message{}, false
}

// codexSyntheticID labels records that carry no provider id of their own.
func codexSyntheticID(sessionID string, lineNo int) string {
	return fmt.Sprintf("%s:%d", sessionID, lineNo)
}

func joinParts(parts []codexContentPart) string {
	out := ""
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}
