package parse

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
)

// claudeLine is one JSONL record of a Claude transcript.
type claudeLine struct {
	Type      string        `json:"type"`
	UUID      string        `json:"uuid"`
	Timestamp string        `json:"timestamp"`
	Cwd       string        `json:"cwd"`
	GitBranch string        `json:"gitBranch"`
	Message   claudeMessage `json:"message"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *claudeUsage    `json:"usage"`
}

type claudeUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// claudeBlock is one element of a structured content array.
type claudeBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
}

// parseClaude reads a Claude JSONL transcript. Each content block becomes
// its own message; block categories follow the block type, with tool
// invocations reclassified as edits when the payload is edit-shaped.
func parseClaude(fs fsys.FS, df model.DiscoveredFile) Result {
	f, err := fs.Open(df.Path)
	if err != nil {
		return Result{}
	}
	defer f.Close()

	var (
		messages    []model.Message
		modelNames  []string
		parseErrors int
		cwd, branch string
		callIdx     = make(map[string]int)
		resultTimes = make(map[string]int64)
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec claudeLine
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors++
			continue
		}
		if rec.Type != "user" && rec.Type != "assistant" && rec.Type != "system" {
			continue
		}
		if rec.Message.Model != "" {
			modelNames = append(modelNames, rec.Message.Model)
		}
		if cwd == "" {
			cwd = rec.Cwd
		}
		if branch == "" {
			branch = rec.GitBranch
		}

		createdAt := parseTimeMs(rec.Timestamp)
		emitted := 0
		emit := func(m model.Message) int {
			m.SessionID = df.SessionKey
			m.Provider = model.ProviderClaude
			m.CreatedAt = createdAt
			m.SourceID = rec.UUID
			if emitted > 0 {
				m.SourceID = fmt.Sprintf("%s#%d", rec.UUID, emitted)
			}
			if emitted == 0 && rec.Message.Usage != nil {
				m.TokenInput = ptr(rec.Message.Usage.InputTokens)
				m.TokenOutput = ptr(rec.Message.Usage.OutputTokens)
			}
			emitted++
			messages = append(messages, m)
			return len(messages) - 1
		}

		if rec.Type == "system" || rec.Message.Role == "system" {
			emit(model.Message{Category: model.CategorySystem, Content: rawContentText(rec.Message.Content)})
			continue
		}

		// Plain string content is a bare user or assistant turn.
		var text string
		if err := json.Unmarshal(rec.Message.Content, &text); err == nil {
			emit(model.Message{Category: roleCategory(rec.Message.Role), Content: text})
			continue
		}

		var blocks []claudeBlock
		if err := json.Unmarshal(rec.Message.Content, &blocks); err != nil {
			parseErrors++
			continue
		}
		for _, b := range blocks {
			switch b.Type {
			case "text":
				emit(model.Message{Category: roleCategory(rec.Message.Role), Content: b.Text})
			case "thinking":
				emit(model.Message{Category: model.CategoryThinking, Content: b.Thinking})
			case "tool_use":
				input := string(b.Input)
				i := emit(model.Message{
					Category: classifyTool(b.Name, input),
					Content:  input,
					ToolCall: &model.ToolCall{Name: b.Name, Input: input},
				})
				if b.ID != "" {
					callIdx[b.ID] = i
				}
			case "tool_result":
				content := rawContentText(b.Content)
				emit(model.Message{
					Category: model.CategoryToolResult,
					Content:  content,
					ToolCall: &model.ToolCall{Result: content},
				})
				if b.ToolUseID != "" && createdAt > 0 {
					resultTimes[b.ToolUseID] = createdAt
				}
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

func roleCategory(role string) model.Category {
	if role == "assistant" {
		return model.CategoryAssistant
	}
	return model.CategoryUser
}

// rawContentText flattens a content field that may be a plain string or a
// block array into displayable text. Anything else is kept as raw JSON.
func rawContentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var blocks []claudeBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		out := ""
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				if out != "" {
					out += "\n"
				}
				out += b.Text
			}
		}
		if out != "" {
			return out
		}
	}
	return string(raw)
}
