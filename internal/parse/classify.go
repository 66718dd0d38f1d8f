package parse

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/trawldev/trawl/internal/model"
)

// editToolNames are tool names that always mutate files. Invocations of
// these are edits regardless of payload shape.
var editToolNames = map[string]bool{
	"edit":               true,
	"write":              true,
	"multiedit":          true,
	"notebookedit":       true,
	"apply_patch":        true,
	"str_replace_editor": true,
	"replace":            true,
	"write_file":         true,
}

// classifyTool decides between tool_use and tool_edit for an invocation.
// An invocation is an edit when its name is a known editing tool or its
// argument payload matches an edit-like shape: old_string/new_string pairs,
// a diff or patch key, or an apply-patch envelope embedded in the args.
func classifyTool(name, argsJSON string) model.Category {
	if editToolNames[strings.ToLower(name)] {
		return model.CategoryToolEdit
	}
	if isEditPayload(argsJSON) {
		return model.CategoryToolEdit
	}
	return model.CategoryToolUse
}

func isEditPayload(argsJSON string) bool {
	if argsJSON == "" {
		return false
	}
	if gjson.Valid(argsJSON) {
		args := gjson.Parse(argsJSON)
		if args.Get("old_string").Exists() && args.Get("new_string").Exists() {
			return true
		}
		if args.Get("diff").Exists() || args.Get("patch").Exists() {
			return true
		}
		if args.Get("edits").IsArray() {
			return true
		}
	}
	// Shell-wrapped apply_patch envelopes arrive as plain strings inside
	// the args, not as structured keys.
	return strings.Contains(argsJSON, "*** Begin Patch")
}
