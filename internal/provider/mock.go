package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reelcraft/api/internal/model"
)

// Mock providers for development and tests, used when no OpenAI key is
// configured. They produce real files so the download and delete paths
// behave as in production.

type MockSceneGenerator struct {
	SceneCount     int
	TargetDuration int
}

func (g *MockSceneGenerator) GenerateScenes(ctx context.Context, userInput string) ([]model.Scene, error) {
	count := g.SceneCount
	if count <= 0 {
		count = 3
	}
	duration := float64(g.TargetDuration)
	if duration <= 0 {
		duration = 30
	}
	perScene := duration / float64(count)

	topic := userInput
	if len(topic) > 60 {
		topic = topic[:60]
	}

	scenes := make([]model.Scene, 0, count)
	for i := 0; i < count; i++ {
		scenes = append(scenes, model.Scene{
			Description:     fmt.Sprintf("Scene %d exploring: %s", i+1, topic),
			CaptionText:     fmt.Sprintf("Part %d: %s", i+1, topic),
			DurationSeconds: perScene,
		})
	}
	return scenes, nil
}

type MockSceneCritic struct{}

func (c *MockSceneCritic) ImproveScenes(ctx context.Context, scenes []model.Scene) ([]model.Scene, error) {
	improved := make([]model.Scene, 0, len(scenes))
	for _, scene := range scenes {
		scene.CaptionText = strings.TrimSpace(scene.CaptionText)
		scene.Description = strings.TrimSpace(scene.Description)
		improved = append(improved, scene)
	}
	return improved, nil
}

type MockNarrator struct {
	TempDir string
}

func (n *MockNarrator) Narrate(ctx context.Context, scene model.Scene, index int) (string, error) {
	audioPath := filepath.Join(n.TempDir, fmt.Sprintf("scene_%d_%s.mp3", index+1, uuid.New().String()))
	if err := os.WriteFile(audioPath, []byte(scene.CaptionText), 0o644); err != nil {
		return "", err
	}
	return audioPath, nil
}

type MockAssembler struct {
	OutputDir string
}

func (a *MockAssembler) Assemble(ctx context.Context, scenes []model.Scene, narrationRefs []string) (*Artifact, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes to assemble")
	}

	var total float64
	var manifest strings.Builder
	for i, scene := range scenes {
		total += scene.DurationSeconds
		ref := SilentNarrationRef
		if i < len(narrationRefs) {
			ref = narrationRefs[i]
		}
		fmt.Fprintf(&manifest, "scene %d | %.1fs | %s | %s\n", i+1, scene.DurationSeconds, scene.CaptionText, ref)
	}

	outPath := filepath.Join(a.OutputDir, fmt.Sprintf("%s.mp4", uuid.New().String()))
	if err := os.WriteFile(outPath, []byte(manifest.String()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}
	return &Artifact{FilePath: outPath, Duration: total}, nil
}
