package model

import "time"

// Scene is one unit of generated video content. Description drives the
// narration script, CaptionText is rendered on screen.
type Scene struct {
	Description     string  `json:"description"`
	CaptionText     string  `json:"captionText"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Video represents one generation job and its persisted state.
type Video struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	UserInput   string      `json:"userInput"`
	Status      VideoStatus `json:"status"`
	CurrentStep Stage       `json:"currentStep,omitempty"`
	Progress    int         `json:"progress"`
	Error       *string     `json:"error,omitempty"`

	RawScenes      []Scene  `json:"rawScenes,omitempty"`
	ApprovedScenes []Scene  `json:"approvedScenes,omitempty"`
	NarrationRefs  []string `json:"narrationRefs,omitempty"`
	RetryCount     int      `json:"retryCount"`

	FilePath  string  `json:"filePath,omitempty"`
	PublicURL string  `json:"publicUrl,omitempty"`
	Duration  float64 `json:"duration,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProgressEntry is one append-only record in a video's progress log.
type ProgressEntry struct {
	Stage     Stage          `json:"stage"`
	Status    ProgressStatus `json:"status"`
	Message   string         `json:"message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// CreateVideoRequest is the submission payload for a new generation job.
type CreateVideoRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=2000"`
	UserInput   string `json:"userInput" validate:"required,max=4000"`
}

// CreateVideoResponse is returned on successful submission.
type CreateVideoResponse struct {
	Video   *Video `json:"video"`
	Message string `json:"message"`
}

// VideoListResponse wraps the newest-first video listing.
type VideoListResponse struct {
	Videos []*Video `json:"videos"`
}

// ProgressListResponse wraps a video's progress log.
type ProgressListResponse struct {
	Progress []*ProgressEntry `json:"progress"`
}
