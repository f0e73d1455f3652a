package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/model"
)

// OpenAISceneGenerator synthesizes scenes with a chat completion.
type OpenAISceneGenerator struct {
	client         *client.OpenAIClient
	sceneCount     int
	targetDuration int
}

func NewOpenAISceneGenerator(c *client.OpenAIClient, sceneCount, targetDuration int) *OpenAISceneGenerator {
	return &OpenAISceneGenerator{
		client:         c,
		sceneCount:     sceneCount,
		targetDuration: targetDuration,
	}
}

func (g *OpenAISceneGenerator) GenerateScenes(ctx context.Context, userInput string) ([]model.Scene, error) {
	prompt := fmt.Sprintf(`Create %d engaging video scenes based on this input: %q

Each scene should have:
- description: a detailed description of what happens in the scene
- captionText: the text that will appear on screen (concise and readable)
- durationSeconds: how long the scene should last in seconds

Total video duration should be approximately %d seconds.

Format your response as a JSON array of objects with these fields.
Make sure the text is clear and suitable for voice narration.`, g.sceneCount, userInput, g.targetDuration)

	content, err := g.client.ChatCompletion(ctx, prompt, 0.7, 1024)
	if err != nil {
		return nil, fmt.Errorf("scene generation request failed: %w", err)
	}

	scenes, err := parseSceneJSON(content)
	if err != nil {
		// Unparseable model output degrades to basic scenes rather than
		// failing the whole job over a formatting slip.
		log.Printf("Failed to parse generated scenes, using fallback: %v", err)
		return fallbackScenes(g.sceneCount, g.targetDuration), nil
	}
	return scenes, nil
}

// OpenAISceneCritic asks the model to review and improve a scene set.
type OpenAISceneCritic struct {
	client *client.OpenAIClient
}

func NewOpenAISceneCritic(c *client.OpenAIClient) *OpenAISceneCritic {
	return &OpenAISceneCritic{client: c}
}

func (sc *OpenAISceneCritic) ImproveScenes(ctx context.Context, scenes []model.Scene) ([]model.Scene, error) {
	current, err := json.Marshal(scenes)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Review these video scenes and improve them for clarity, variety and
narration quality. Keep the same number of scenes and the same JSON shape
(description, captionText, durationSeconds). Captions must be between 10 and
150 characters and distinct from each other.

Scenes: %s

Respond with the improved JSON array only.`, current)

	content, err := sc.client.ChatCompletion(ctx, prompt, 0.5, 2048)
	if err != nil {
		return nil, fmt.Errorf("scene critique request failed: %w", err)
	}

	improved, err := parseSceneJSON(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse critiqued scenes: %w", err)
	}
	return improved, nil
}

// OpenAINarrator writes a narration script per scene and synthesizes it to
// an MP3 in the temp directory.
type OpenAINarrator struct {
	client  *client.OpenAIClient
	voice   string
	tempDir string
}

func NewOpenAINarrator(c *client.OpenAIClient, voice, tempDir string) *OpenAINarrator {
	return &OpenAINarrator{
		client:  c,
		voice:   voice,
		tempDir: tempDir,
	}
}

func (n *OpenAINarrator) Narrate(ctx context.Context, scene model.Scene, index int) (string, error) {
	script := n.narrationScript(ctx, scene)
	if script == "" {
		return "", fmt.Errorf("no narration text for scene %d", index+1)
	}

	audio, err := n.client.Speech(ctx, n.voice, script)
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}

	audioPath := filepath.Join(n.tempDir, fmt.Sprintf("scene_%d_%s.mp3", index+1, uuid.New().String()))
	if err := os.WriteFile(audioPath, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write narration audio: %w", err)
	}
	return audioPath, nil
}

func (n *OpenAINarrator) narrationScript(ctx context.Context, scene model.Scene) string {
	prompt := fmt.Sprintf(`Write a short, natural narration (one or two sentences) for a video
scene. Scene description: %q. On-screen caption: %q. Respond with the
narration text only.`, scene.Description, scene.CaptionText)

	script, err := n.client.ChatCompletion(ctx, prompt, 0.6, 200)
	if err != nil {
		// Fall back to the caption text verbatim.
		log.Printf("Narration script generation failed, using caption: %v", err)
		return scene.CaptionText
	}
	return strings.TrimSpace(script)
}

// parseSceneJSON extracts the first JSON array from a model response.
func parseSceneJSON(response string) ([]model.Scene, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var scenes []model.Scene
	if err := json.Unmarshal([]byte(response[start:end+1]), &scenes); err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("empty scene array")
	}
	return scenes, nil
}

func fallbackScenes(count, targetDuration int) []model.Scene {
	if count <= 0 {
		count = 3
	}
	perScene := float64(targetDuration) / float64(count)
	scenes := make([]model.Scene, 0, count)
	for i := 0; i < count; i++ {
		scenes = append(scenes, model.Scene{
			Description:     fmt.Sprintf("Scene %d content", i+1),
			CaptionText:     fmt.Sprintf("Scene %d", i+1),
			DurationSeconds: perScene,
		})
	}
	return scenes
}
