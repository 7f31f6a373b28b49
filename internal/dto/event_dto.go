package dto

// Outbound event types multiplexed over one connection.
const (
	EventTypeLogs = "logs"
	EventTypeChat = "chat"
	EventTypePath = "path"
)

// LogsEvent streams a progress line to the client.
type LogsEvent struct {
	Type   string `json:"type"`
	Output string `json:"output"`
}

func NewLogsEvent(output string) LogsEvent {
	return LogsEvent{Type: EventTypeLogs, Output: output}
}

// ChatEvent carries a chat answer.
type ChatEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewChatEvent(content string) ChatEvent {
	return ChatEvent{Type: EventTypeChat, Content: content}
}

// FilePaths lists the exported report files; a failed format is an empty
// string.
type FilePaths struct {
	PDF  string `json:"pdf"`
	DOCX string `json:"docx"`
	MD   string `json:"md"`
}

// PathEvent announces where the finished report was written.
type PathEvent struct {
	Type   string    `json:"type"`
	Output FilePaths `json:"output"`
}

func NewPathEvent(paths FilePaths) PathEvent {
	return PathEvent{Type: EventTypePath, Output: paths}
}
