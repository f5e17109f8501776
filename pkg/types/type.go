package types

// StoryEvent is a progress notification for one story. Events go out over
// the websocket stream while the pipeline advances.
type StoryEvent struct {
	StoryID   string `json:"story_id"`
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}
