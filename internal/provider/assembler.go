package provider

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reelcraft/api/internal/model"
)

// FFmpegAssembler composes the final MP4 by shelling out to ffmpeg: one
// captioned color clip per scene, narration audio muxed in where available,
// silence where a scene degraded.
type FFmpegAssembler struct {
	outputDir  string
	resolution string
	binary     string
}

func NewFFmpegAssembler(outputDir, resolution string) *FFmpegAssembler {
	return &FFmpegAssembler{
		outputDir:  outputDir,
		resolution: resolution,
		binary:     "ffmpeg",
	}
}

// Available reports whether the ffmpeg binary is on PATH.
func (a *FFmpegAssembler) Available() bool {
	_, err := exec.LookPath(a.binary)
	return err == nil
}

func (a *FFmpegAssembler) Assemble(ctx context.Context, scenes []model.Scene, narrationRefs []string) (*Artifact, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes to assemble")
	}
	if _, err := exec.LookPath(a.binary); err != nil {
		return nil, fmt.Errorf("ffmpeg not available: %w", err)
	}

	outPath := filepath.Join(a.outputDir, fmt.Sprintf("%s.mp4", uuid.New().String()))

	args := []string{"-y"}
	var filters []string
	var concat []string
	var total float64

	for i, scene := range scenes {
		dur := scene.DurationSeconds
		if dur <= 0 {
			dur = 5
		}
		total += dur

		args = append(args, "-f", "lavfi", "-t", fmt.Sprintf("%.2f", dur),
			"-i", fmt.Sprintf("color=c=white:s=%s", a.resolution))

		ref := SilentNarrationRef
		if i < len(narrationRefs) {
			ref = narrationRefs[i]
		}
		if ref == SilentNarrationRef || ref == "" {
			args = append(args, "-f", "lavfi", "-t", fmt.Sprintf("%.2f", dur),
				"-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
		} else {
			args = append(args, "-i", ref)
		}

		vIn := i * 2
		aIn := i*2 + 1
		filters = append(filters, fmt.Sprintf(
			"[%d:v]drawtext=text='%s':fontsize=48:fontcolor=black:x=(w-text_w)/2:y=h-120[v%d]",
			vIn, escapeDrawtext(scene.CaptionText), i))
		concat = append(concat, fmt.Sprintf("[v%d][%d:a]", i, aIn))
	}

	filterComplex := strings.Join(filters, ";") + ";" +
		strings.Join(concat, "") +
		fmt.Sprintf("concat=n=%d:v=1:a=1[outv][outa]", len(scenes))

	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "[outv]", "-map", "[outa]",
		"-pix_fmt", "yuv420p",
		"-shortest",
		outPath,
	)

	cmd := exec.CommandContext(ctx, a.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(out), 400))
	}

	if _, err := os.Stat(outPath); err != nil {
		return nil, fmt.Errorf("ffmpeg produced no output: %w", err)
	}

	return &Artifact{FilePath: outPath, Duration: total}, nil
}

func escapeDrawtext(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return r.Replace(text)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
