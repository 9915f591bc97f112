package memory

import "fmt"

// IngestJob is one completed exchange queued for long-term memory ingestion.
type IngestJob struct {
	UserID        uint   `json:"user_id"`
	SessionID     string `json:"session_id"`
	UserText      string `json:"user_text"`
	AssistantText string `json:"assistant_text"`
}

// MemoryText renders the exchange as a single retrievable document.
func (j IngestJob) MemoryText() string {
	if j.AssistantText == "" {
		return fmt.Sprintf("User: %s", j.UserText)
	}
	return fmt.Sprintf("User: %s\nAssistant: %s", j.UserText, j.AssistantText)
}
