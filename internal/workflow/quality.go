package workflow

import (
	"unicode/utf8"

	"github.com/reelcraft/api/internal/model"
)

// Caption length bounds for on-screen display.
const (
	minCaptionLen = 10
	maxCaptionLen = 150
)

// minCaptionVariety is the minimum ratio of distinct captions to total
// captions accepted on the first attempt.
const minCaptionVariety = 0.8

// EvaluateSceneQuality decides whether a critiqued scene set is acceptable
// or must loop back to generation. Only the structural checks (non-empty
// set, non-empty fields) always apply; caption length and variety are
// judged on the first attempt only, so a retried set that passes structure
// is trusted rather than looped forever.
func EvaluateSceneQuality(scenes []model.Scene, retryCount int) bool {
	if len(scenes) == 0 {
		return false
	}

	for _, scene := range scenes {
		if scene.CaptionText == "" || scene.Description == "" {
			return false
		}
	}

	if retryCount >= 1 {
		return true
	}

	for _, scene := range scenes {
		n := utf8.RuneCountInString(scene.CaptionText)
		if n < minCaptionLen || n > maxCaptionLen {
			return false
		}
	}

	distinct := make(map[string]struct{}, len(scenes))
	for _, scene := range scenes {
		distinct[scene.CaptionText] = struct{}{}
	}
	if float64(len(distinct)) < float64(len(scenes))*minCaptionVariety {
		return false
	}

	return true
}

// Decide maps the quality verdict onto the two-state critique decision: a
// rejected set retries until the bound is spent, then continues anyway.
func Decide(scenes []model.Scene, retryCount int) model.Decision {
	if EvaluateSceneQuality(scenes, retryCount) || retryCount >= maxSceneRetries {
		return model.DecisionContinue
	}
	return model.DecisionRetry
}
