// Package chat turns the desk items into a prompt and asks a language model
// about them.
package chat

import (
	"strconv"
	"strings"

	"github.com/Makepad-fr/deskview/internal/model"
)

// SystemInstruction keeps answers short and on topic.
const SystemInstruction = "You are a concise assistant. Answer only the user's question using the desk items context. Do not add extra commentary."

const contextHeader = "Current desk items (coords 0-1, origin top-left):"

// ItemLine renders one item as "name at (x, y): color".
func ItemLine(it model.Item) string {
	color := it.Color
	if color == "" {
		color = "unknown"
	}
	var b strings.Builder
	b.WriteString(it.Name)
	b.WriteString(" at (")
	b.WriteString(formatCoord(it.X))
	b.WriteString(", ")
	b.WriteString(formatCoord(it.Y))
	b.WriteString("): ")
	b.WriteString(color)
	return b.String()
}

// BuildPrompt lists the items in order and appends the question. It is pure:
// the same input always yields the same text.
func BuildPrompt(question string, items []model.Item) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteByte('\n')
	if len(items) == 0 {
		b.WriteString("No items.\n")
	}
	for _, it := range items {
		b.WriteString(ItemLine(it))
		b.WriteByte('\n')
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

// Messages is the system/user pair sent to the model.
type Messages struct {
	System string
	User   string
}

// BuildMessages pairs SystemInstruction with BuildPrompt.
func BuildMessages(question string, items []model.Item) Messages {
	return Messages{
		System: SystemInstruction,
		User:   BuildPrompt(question, items),
	}
}

// shortest decimal form: 0.52 stays 0.52, 1 prints as 1
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
