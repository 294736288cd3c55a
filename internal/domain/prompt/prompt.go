// Package prompt builds the chat messages sent to the answer generator.
package prompt

import "strings"

// SystemInstruction is the fixed system message for every generation call.
const SystemInstruction = "You are a helpful assistant."

// Build renders the user prompt restricting the model to the given context.
func Build(question, contextText string) string {
	var b strings.Builder
	b.Grow(len(question) + len(contextText) + 64)
	b.WriteString("\nAnswer using ONLY the context below.\n\nContext:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

// JoinContext concatenates retrieved passages with single newlines, preserving rank order.
func JoinContext(passages []string) string {
	return strings.Join(passages, "\n")
}
