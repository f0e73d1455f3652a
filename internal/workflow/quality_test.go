package workflow

import (
	"strings"
	"testing"

	"github.com/reelcraft/api/internal/model"
)

func scenesWithCaptions(captions ...string) []model.Scene {
	scenes := make([]model.Scene, 0, len(captions))
	for _, caption := range captions {
		scenes = append(scenes, model.Scene{
			Description:     "A scene showing " + caption,
			CaptionText:     caption,
			DurationSeconds: 10,
		})
	}
	return scenes
}

func TestEvaluateSceneQuality_Accepts(t *testing.T) {
	scenes := scenesWithCaptions(
		"Morning light over the city",
		"Traffic builds as commuters arrive",
		"The skyline glows at dusk",
	)

	if !EvaluateSceneQuality(scenes, 0) {
		t.Error("expected varied, well-formed scenes to be accepted on first attempt")
	}
}

func TestEvaluateSceneQuality_EmptySet(t *testing.T) {
	if EvaluateSceneQuality(nil, 0) {
		t.Error("expected empty scene set to be rejected")
	}
	if EvaluateSceneQuality(nil, 2) {
		t.Error("expected empty scene set to be rejected even on retry")
	}
}

func TestEvaluateSceneQuality_MissingFields(t *testing.T) {
	scenes := scenesWithCaptions("A perfectly fine caption")
	scenes[0].Description = ""

	if EvaluateSceneQuality(scenes, 0) {
		t.Error("expected scene with empty description to be rejected")
	}

	scenes = scenesWithCaptions("A perfectly fine caption")
	scenes[0].CaptionText = ""
	if EvaluateSceneQuality(scenes, 0) {
		t.Error("expected scene with empty caption to be rejected")
	}
}

func TestEvaluateSceneQuality_ShortCaption(t *testing.T) {
	scenes := scenesWithCaptions("short", "adequate caption text")

	if EvaluateSceneQuality(scenes, 0) {
		t.Error("expected scene set with a too-short caption to be rejected on first attempt")
	}
	// Length bounds are waived after a retry; only structure holds.
	if !EvaluateSceneQuality(scenes, 1) {
		t.Error("expected the same set to be accepted after a retry")
	}
}

func TestEvaluateSceneQuality_LongCaption(t *testing.T) {
	scenes := scenesWithCaptions(strings.Repeat("x", 151))

	if EvaluateSceneQuality(scenes, 0) {
		t.Error("expected caption over 150 runes to be rejected on first attempt")
	}

	scenes = scenesWithCaptions(strings.Repeat("x", 150))
	if !EvaluateSceneQuality(scenes, 0) {
		t.Error("expected caption of exactly 150 runes to be accepted")
	}
}

func TestEvaluateSceneQuality_Repetition(t *testing.T) {
	scenes := scenesWithCaptions(
		"repeat this caption",
		"repeat this caption",
		"repeat this caption",
		"repeat this caption",
	)

	if EvaluateSceneQuality(scenes, 0) {
		t.Error("expected repetitive captions to be rejected on first attempt")
	}
	// The variety check is waived after a retry.
	if !EvaluateSceneQuality(scenes, 1) {
		t.Error("expected structurally valid repeats to be accepted after a retry")
	}
}

func TestDecide(t *testing.T) {
	repetitive := scenesWithCaptions(
		"repeat this caption",
		"repeat this caption",
		"repeat this caption",
	)

	if got := Decide(repetitive, 0); got != model.DecisionRetry {
		t.Errorf("expected retry for repetitive first attempt, got %s", got)
	}
	if got := Decide(repetitive, 1); got != model.DecisionContinue {
		t.Errorf("expected continue once a retry was spent, got %s", got)
	}

	// A structurally broken set still continues when the bound is spent.
	broken := scenesWithCaptions("never accepted")
	broken[0].CaptionText = ""
	if got := Decide(broken, maxSceneRetries); got != model.DecisionContinue {
		t.Errorf("expected continue at the retry bound, got %s", got)
	}
	if got := Decide(broken, 0); got != model.DecisionRetry {
		t.Errorf("expected retry below the bound, got %s", got)
	}
}

func TestEvaluateSceneQuality_VarietyThreshold(t *testing.T) {
	// 4 of 5 distinct is exactly the 0.8 threshold and passes.
	scenes := scenesWithCaptions(
		"caption number one",
		"caption number two",
		"caption number three",
		"caption number four",
		"caption number four",
	)
	if !EvaluateSceneQuality(scenes, 0) {
		t.Error("expected 4/5 distinct captions to meet the variety threshold")
	}

	// 3 of 5 distinct falls below it.
	scenes = scenesWithCaptions(
		"caption number one",
		"caption number two",
		"caption number three",
		"caption number three",
		"caption number three",
	)
	if EvaluateSceneQuality(scenes, 0) {
		t.Error("expected 3/5 distinct captions to fail the variety threshold")
	}
}
