package database

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// StoryStatus tracks a story through the generation pipeline. Transitions
// are monotonic: a story never moves back to an earlier stage. The only
// side-exit is StatusFailed, reachable from any non-terminal state.
type StoryStatus string

const (
	StatusPending             StoryStatus = "pending"
	StatusGenerating          StoryStatus = "generating"
	StatusProcessingAudio     StoryStatus = "processing_audio"
	StatusProcessingSubtitles StoryStatus = "processing_subtitles"
	StatusProcessingImages    StoryStatus = "processing_images"
	StatusAssemblingVideo     StoryStatus = "assembling_video"
	StatusCompleted           StoryStatus = "completed"
	StatusFailed              StoryStatus = "failed"
)

var statusRank = map[StoryStatus]int{
	StatusPending:             0,
	StatusGenerating:          1,
	StatusProcessingAudio:     2,
	StatusProcessingSubtitles: 3,
	StatusProcessingImages:    4,
	StatusAssemblingVideo:     5,
	StatusCompleted:           6,
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic state machine. Completed and failed are terminal.
func (s StoryStatus) CanTransitionTo(next StoryStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}

	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Terminal reports whether no further transitions are allowed.
func (s StoryStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MyTime stores timestamps in a stable "2006-01-02 15:04:05" form across
// sqlite and JSON.
type MyTime struct {
	time.Time
}

func Now() MyTime {
	return MyTime{Time: time.Now()}
}

// GormDataType implements the gorm data type hook.
func (MyTime) GormDataType() string {
	return "timestamp"
}

// Scan implements sql.Scanner.
func (t *MyTime) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case time.Time:
		t.Time = v
	case string:
		parsed, err := time.Parse("2006-01-02 15:04:05", v)
		if err != nil {
			return fmt.Errorf("can't parse %s to MyTime", v)
		}
		t.Time = parsed
	case []byte:
		parsed, err := time.Parse("2006-01-02 15:04:05", string(v))
		if err != nil {
			return fmt.Errorf("can't parse %s to MyTime", string(v))
		}
		t.Time = parsed
	default:
		return fmt.Errorf("can't parse %v to MyTime", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (t MyTime) Value() (driver.Value, error) {
	return t.Time, nil
}

func (t MyTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, t.Time.Format("2006-01-02 15:04:05"))), nil
}

func (t *MyTime) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), "\"")
	if str == "null" {
		return nil
	}

	parsed, err := time.Parse("2006-01-02 15:04:05", str)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
