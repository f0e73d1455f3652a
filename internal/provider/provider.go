// Package provider defines the narrow contracts for the four generative
// capabilities the pipeline depends on. Each provider is a pure call from
// typed input to typed output that may fail; the workflow engine decides
// what a failure means for the job.
package provider

import (
	"context"

	"github.com/reelcraft/api/internal/model"
)

// SceneGenerator synthesizes an ordered scene set from the user's prompt.
type SceneGenerator interface {
	GenerateScenes(ctx context.Context, userInput string) ([]model.Scene, error)
}

// SceneCritic reviews a scene set and returns an improved version.
type SceneCritic interface {
	ImproveScenes(ctx context.Context, scenes []model.Scene) ([]model.Scene, error)
}

// Narrator produces a narration audio reference for a single scene.
type Narrator interface {
	Narrate(ctx context.Context, scene model.Scene, index int) (string, error)
}

// Artifact is the assembled output of a completed job.
type Artifact struct {
	FilePath string
	Duration float64
}

// Assembler composes approved scenes and narration refs into the final
// artifact. NarrationRefs is order-aligned with scenes; entries may be the
// silent placeholder.
type Assembler interface {
	Assemble(ctx context.Context, scenes []model.Scene, narrationRefs []string) (*Artifact, error)
}

// SilentNarrationRef marks a scene whose narration degraded to silence.
const SilentNarrationRef = "silent"
