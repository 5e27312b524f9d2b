package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Messages maps message keys to their console text.
var Messages = map[string]string{
	"notifications.on":    "Job notifications enabled.",
	"notifications.off":   "Job notifications disabled.",
	"notifications.error": "Could not change job notifications. Please try again later.",
}

// ConsoleMessenger implements service.Messenger by printing to a writer.
type ConsoleMessenger struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewConsoleMessenger creates a messenger writing to w, or stdout when nil.
func NewConsoleMessenger(w io.Writer) *ConsoleMessenger {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleMessenger{writer: w}
}

// Notify prints the text for key. Keys ending in ".error" are styled as errors.
func (m *ConsoleMessenger) Notify(_ context.Context, recipient uuid.UUID, key string) {
	text, ok := Messages[key]
	if !ok {
		text = key
	}

	line := FormatSuccess(text)
	if strings.HasSuffix(key, ".error") {
		line = FormatError(text)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = fmt.Fprintf(m.writer, "%s %s\n", line, SubtleStyle.Render("("+recipient.String()+")"))
}
