// Package workflow implements the fixed generation pipeline:
//
//	start -> Generate -> Critique -(retry)-> Generate
//	                    -(continue)-> Narrate -> Assemble -> end
//
// The critique->generate edge is a bounded counter, not free recursion:
// at most maxSceneRetries retries, so at most maxSceneRetries+1 generate
// cycles per job.
package workflow

import (
	"context"
	"fmt"
	"log"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/provider"
)

// maxSceneRetries bounds the generate<->critique loop.
const maxSceneRetries = 3

// ProgressFunc is invoked at every stage transition.
type ProgressFunc func(stage model.Stage, percent int, message string)

// Result carries the terminal state of one pipeline run.
type Result struct {
	RawScenes      []model.Scene
	ApprovedScenes []model.Scene
	NarrationRefs  []string
	Artifact       *provider.Artifact
	RetryCount     int
	Stage          model.Stage
	Err            string
}

// Failed reports whether the run ended without an artifact.
func (r *Result) Failed() bool {
	return r.Stage == model.StageFailed
}

// Engine sequences the pipeline stages over the four providers.
type Engine struct {
	generator provider.SceneGenerator
	critic    provider.SceneCritic
	narrator  provider.Narrator
	assembler provider.Assembler
}

func NewEngine(g provider.SceneGenerator, c provider.SceneCritic, n provider.Narrator, a provider.Assembler) *Engine {
	return &Engine{
		generator: g,
		critic:    c,
		narrator:  n,
		assembler: a,
	}
}

// Run executes the pipeline to a terminal Result. It never panics outward
// and never returns an error: provider failures are either absorbed
// (critique, narration) or recorded as a failed terminal result (generation,
// assembly). progress may be nil.
func (e *Engine) Run(ctx context.Context, userInput string, progress ProgressFunc) *Result {
	if progress == nil {
		progress = func(model.Stage, int, string) {}
	}

	res := &Result{Stage: model.StageStart}

	if userInput == "" {
		return e.fail(res, progress, model.StageGenerating, 25, "no user input provided")
	}

	// Generate <-> Critique loop, bounded by maxSceneRetries.
	for {
		res.Stage = model.StageGenerating
		progress(model.StageGenerating, 25, fmt.Sprintf("Generating video scenes (attempt %d)...", res.RetryCount+1))

		rawScenes, err := e.generator.GenerateScenes(ctx, userInput)
		if err != nil {
			return e.fail(res, progress, model.StageGenerating, 35, fmt.Sprintf("scene generation failed: %v", err))
		}
		if len(rawScenes) == 0 {
			return e.fail(res, progress, model.StageGenerating, 35, "scene generation produced no scenes")
		}
		res.RawScenes = rawScenes
		progress(model.StageGenerating, 35, fmt.Sprintf("Generated %d video scenes", len(rawScenes)))

		res.Stage = model.StageCritiquing
		progress(model.StageCritiquing, 45, fmt.Sprintf("Reviewing and improving scenes (attempt %d)...", res.RetryCount+1))

		improved, err := e.critic.ImproveScenes(ctx, rawScenes)
		if err != nil || len(improved) == 0 {
			// Degrade, don't abort: fall back to the raw scenes and move on.
			// A failing critic can therefore never trigger a retry.
			if err != nil {
				log.Printf("Scene critique failed, using raw scenes: %v", err)
			}
			res.ApprovedScenes = rawScenes
			break
		}
		res.ApprovedScenes = improved

		if Decide(improved, res.RetryCount) == model.DecisionContinue {
			break
		}

		res.RetryCount++
		progress(model.StageCritiquing, 40, fmt.Sprintf("Scenes need improvement, retrying (%d/%d)...", res.RetryCount, maxSceneRetries))
	}
	progress(model.StageCritiquing, 55, "Scenes approved and ready for narration")

	res.Stage = model.StageNarrating
	progress(model.StageNarrating, 65, "Generating audio narration...")

	res.NarrationRefs = make([]string, 0, len(res.ApprovedScenes))
	narrated := 0
	for i, scene := range res.ApprovedScenes {
		ref, err := e.narrator.Narrate(ctx, scene, i)
		if err != nil || ref == "" {
			// One flaky narration call degrades that scene only.
			log.Printf("Narration failed for scene %d, using silent placeholder: %v", i+1, err)
			ref = provider.SilentNarrationRef
		} else {
			narrated++
		}
		res.NarrationRefs = append(res.NarrationRefs, ref)
	}
	progress(model.StageNarrating, 80, fmt.Sprintf("Generated narration for %d of %d scenes", narrated, len(res.ApprovedScenes)))

	res.Stage = model.StageAssembling
	progress(model.StageAssembling, 90, "Assembling the final video...")

	artifact, err := e.assembler.Assemble(ctx, res.ApprovedScenes, res.NarrationRefs)
	if err != nil {
		return e.fail(res, progress, model.StageAssembling, 95, fmt.Sprintf("video assembly failed: %v", err))
	}
	if artifact == nil || artifact.FilePath == "" {
		return e.fail(res, progress, model.StageAssembling, 95, "video assembly produced no artifact")
	}
	res.Artifact = artifact

	res.Stage = model.StageCompleted
	progress(model.StageCompleted, 100, "Video generation completed successfully")
	return res
}

func (e *Engine) fail(res *Result, progress ProgressFunc, stage model.Stage, percent int, msg string) *Result {
	log.Printf("Pipeline failed at %s: %s", stage, msg)
	res.Err = msg
	res.Stage = model.StageFailed
	progress(model.StageFailed, percent, msg)
	return res
}
