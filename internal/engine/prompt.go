package engine

import "strings"

// Fixed prompt texts for the text-reformatting strategies.
const (
	reformatSystemPrompt = "You are tasked with reformatting user's clipboard data. Use the user's instructions, and the content of their clipboard below to edit their clipboard content as they have requested it.\n\nDo not output anything else besides the reformatted clipboard content."

	// The streaming variant is stricter: a local model has no stop-sequence
	// post-processing, so chatter would end up on the clipboard verbatim.
	reformatSystemPromptStreaming = reformatSystemPrompt + ", so no chatter, or explanations."

	agentSystemPrompt = "You are an agent that edits the user's clipboard using the available tools. Before anything else, call get_clipboard_formats to check which data formats are currently on the clipboard, then use the other tools to carry out the user's request. When the clipboard holds the requested result, reply with a short confirmation of what was done.\n\nDo not fabricate clipboard content; only report what the tools did."
)

// reformatUserPrompt assembles the instructions + clipboard body shared by
// the cloud and local strategies.
func reformatUserPrompt(instructions string, clipboardText string) string {
	var sb strings.Builder
	sb.WriteString("User instructions:\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\nClipboard Content:\n")
	sb.WriteString(clipboardText)
	sb.WriteString("\n")
	return sb.String()
}

// cloudUserPrompt appends the output cue the one-shot strategy relies on.
func cloudUserPrompt(instructions string, clipboardText string) string {
	return reformatUserPrompt(instructions, clipboardText) + "\nOutput:\n"
}

// localPrompt renders the role-delimited template the local model expects.
func localPrompt(instructions string, clipboardText string) string {
	var sb strings.Builder
	sb.WriteString("<|system|>\n")
	sb.WriteString(reformatSystemPromptStreaming)
	sb.WriteString("\n<|end|>\n<|user|>\n")
	sb.WriteString(reformatUserPrompt(instructions, clipboardText))
	sb.WriteString("\n<|end|>\n<|assistant|>\nOutput: \n")
	return sb.String()
}
