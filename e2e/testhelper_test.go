package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/auth"
	"github.com/reelcraft/api/internal/broadcast"
	"github.com/reelcraft/api/internal/handler"
	"github.com/reelcraft/api/internal/middleware"
	"github.com/reelcraft/api/internal/moderation"
	"github.com/reelcraft/api/internal/provider"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/store"
	ws "github.com/reelcraft/api/internal/websocket"
	"github.com/reelcraft/api/internal/worker"
	"github.com/reelcraft/api/internal/workflow"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store store.VideoStore
	hub   *broadcast.Broadcaster
}

// setupApp builds the same wiring as main.go but in-process: memory store,
// mock providers, and an inline enqueuer instead of Redis and asynq. Jobs
// still run on a detached goroutine, just like production. A nil moderator
// fails open, so nothing gets flagged.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWithModerator(t, nil)
}

func setupAppWithModerator(t *testing.T, moderator *moderation.Checker) *testApp {
	t.Helper()

	videoStore := store.NewMemoryStore()
	hub := broadcast.NewBroadcaster()
	validate := validator.New()

	outputDir := t.TempDir()
	tempDir := t.TempDir()

	engine := workflow.NewEngine(
		&provider.MockSceneGenerator{SceneCount: 3, TargetDuration: 30},
		&provider.MockSceneCritic{},
		&provider.MockNarrator{TempDir: tempDir},
		&provider.MockAssembler{OutputDir: outputDir},
	)

	videoWorker := worker.NewVideoWorker(videoStore, engine, hub, nil)
	enqueuer := &worker.InlineEnqueuer{Worker: videoWorker}

	videoService := service.NewVideoService(videoStore, enqueuer, moderator, hub, nil, outputDir)
	videoHandler := handler.NewVideoHandler(videoService, validate)
	streamHandler := ws.NewStreamHandler(videoStore, hub)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	// nil redis client disables rate limiting
	rateLimiter := middleware.NewRateLimiter(nil)

	app := fiber.New()

	api := app.Group("/api", authMiddleware.Authenticate())

	videos := api.Group("/videos")
	videos.Post("/", rateLimiter.SubmitLimit(10000), videoHandler.Create)
	videos.Get("/", videoHandler.List)
	videos.Get("/:videoId", videoHandler.Get)
	videos.Get("/:videoId/progress", videoHandler.Progress)
	videos.Get("/:videoId/download", videoHandler.Download)
	videos.Delete("/:videoId", videoHandler.Delete)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/videos/:videoId", websocket.New(func(c *websocket.Conn) {
		streamHandler.HandleConnection(c, c.Params("videoId"))
	}))

	return &testApp{app: app, store: videoStore, hub: hub}
}

// generateToken creates an HMAC JWT for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.GenerateToken("test-user-123", "test@example.com", testJWTSecret)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// waitForStatus polls a video until it reaches the wanted status or the
// deadline passes. Inline jobs finish in milliseconds with mock providers.
func waitForStatus(t *testing.T, ta *testApp, videoID, want string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/videos/"+videoID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		result := parseJSON(t, resp)
		if result["status"] == want {
			return result
		}
		if result["status"] == "failed" && want != "failed" {
			t.Fatalf("video failed while waiting for %s: %v", want, result["error"])
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("video %s never reached status %s", videoID, want)
	return nil
}
