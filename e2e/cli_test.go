package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolosopher/rps-live/internal/api"
	"github.com/yolosopher/rps-live/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath      string
	serverURL       string
	credentialsFile string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "rps-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/rps")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath:      binaryPath,
		serverURL:       serverURL,
		credentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--credentials-file", r.credentialsFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Short round delay so move flows resolve quickly
	app, err := factory.New(context.Background(), factory.Config{
		Logger:         logger,
		NextRoundDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AccountService:  app.AccountService,
		TokenService:    app.TokenService,
		MatchController: app.MatchController,
		Gateway:         app.Gateway,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type matchResponse struct {
	ID      string `json:"matchId"`
	State   string `json:"state"`
	Creator struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"creator"`
	Players []struct {
		Player struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"player"`
		Score int `json:"score"`
	} `json:"players"`
	HistoryRounds []struct {
		Winners []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"winners"`
	} `json:"historyRounds"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_AuthCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Register
	output, err := cli.run("auth", "register", "alice", "--password", "hunter22")
	require.NoError(t, err, "output: %s", output)

	var authResp authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &authResp))
	assert.Equal(t, "alice", authResp.User.Username)
	assert.NotEmpty(t, authResp.AccessToken)
	assert.NotEmpty(t, authResp.RefreshToken)

	// Me (credentials should be stored in the credentials file)
	output, err = cli.run("auth", "me")
	require.NoError(t, err, "output: %s", output)

	var user userResponse
	require.NoError(t, json.Unmarshal([]byte(output), &user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, authResp.User.ID, user.ID)

	// Refresh rotates the stored pair
	output, err = cli.run("auth", "refresh")
	require.NoError(t, err, "output: %s", output)

	var msgResp messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msgResp))
	assert.Contains(t, msgResp.Message, "refreshed")

	// Logout clears the credentials
	output, err = cli.run("auth", "logout")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("auth", "me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "authentication required")
}

func TestCLI_FullMatchFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	// Two CLI runners with separate credentials files
	cli1 := newCLIRunner(t, ts.addr)
	cli2 := &cliRunner{
		binaryPath:      cli1.binaryPath,
		serverURL:       cli1.serverURL,
		credentialsFile: filepath.Join(t.TempDir(), "credentials2.json"),
	}

	// Register two players
	output, err := cli1.run("auth", "register", "alice", "--password", "hunter22")
	require.NoError(t, err, "output: %s", output)
	var auth1 authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &auth1))
	token1 := auth1.AccessToken

	output, err = cli2.run("auth", "register", "bob", "--password", "hunter22")
	require.NoError(t, err, "output: %s", output)
	var auth2 authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &auth2))
	token2 := auth2.AccessToken

	// Alice creates a match
	output, err = cli1.runWithToken(token1, "match", "create")
	require.NoError(t, err, "output: %s", output)
	var match matchResponse
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	assert.Equal(t, "lobby", match.State)
	assert.Equal(t, auth1.User.ID, match.Creator.ID)
	matchID := match.ID
	t.Logf("Created match: %s", matchID)

	// Bob joins
	output, err = cli2.runWithToken(token2, "match", "join", matchID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	assert.Len(t, match.Players, 2)

	// Alice starts the match
	output, err = cli1.runWithToken(token1, "match", "start")
	require.NoError(t, err, "output: %s", output)

	// Rock beats scissors
	output, err = cli1.runWithToken(token1, "match", "move", "rock")
	require.NoError(t, err, "output: %s", output)
	output, err = cli2.runWithToken(token2, "match", "move", "scissors")
	require.NoError(t, err, "output: %s", output)

	// Wait past the reveal delay for the round to resolve
	time.Sleep(300 * time.Millisecond)

	output, err = cli1.runWithToken(token1, "match", "info")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	require.Len(t, match.HistoryRounds, 1)
	require.Len(t, match.HistoryRounds[0].Winners, 1)
	assert.Equal(t, auth1.User.ID, match.HistoryRounds[0].Winners[0].ID)
	for _, entry := range match.Players {
		if entry.Player.ID == auth1.User.ID {
			assert.Equal(t, 1, entry.Score)
		} else {
			assert.Equal(t, 0, entry.Score)
		}
	}

	// Alice ends the match
	output, err = cli1.runWithToken(token1, "match", "end")
	require.NoError(t, err, "output: %s", output)

	// Both players are back out of any match
	output, err = cli2.runWithToken(token2, "match", "info")
	require.NoError(t, err, "output: %s", output)
	var msgResp messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msgResp))
	assert.Contains(t, msgResp.Message, "Not in a match")
}

func TestCLI_KickAndBan(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli1 := newCLIRunner(t, ts.addr)
	cli2 := &cliRunner{
		binaryPath:      cli1.binaryPath,
		serverURL:       cli1.serverURL,
		credentialsFile: filepath.Join(t.TempDir(), "credentials2.json"),
	}

	output, err := cli1.run("auth", "register", "alice", "--password", "hunter22")
	require.NoError(t, err)
	var auth1 authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &auth1))
	token1 := auth1.AccessToken

	output, err = cli2.run("auth", "register", "bob", "--password", "hunter22")
	require.NoError(t, err)
	var auth2 authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &auth2))
	token2 := auth2.AccessToken

	// Alice creates, Bob joins
	output, err = cli1.runWithToken(token1, "match", "create")
	require.NoError(t, err, "output: %s", output)
	var match matchResponse
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	matchID := match.ID

	_, err = cli2.runWithToken(token2, "match", "join", matchID)
	require.NoError(t, err)

	// Bob cannot ban (not the creator)
	output, err = cli2.runWithToken(token2, "match", "ban", auth1.User.ID)
	assert.Error(t, err, "non-creator should not be able to ban")
	assert.Contains(t, strings.ToLower(output), "creator")

	// Alice bans Bob, who then cannot rejoin
	_, err = cli1.runWithToken(token1, "match", "ban", auth2.User.ID)
	require.NoError(t, err)

	output, err = cli2.runWithToken(token2, "match", "join", matchID)
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "banned")

	// Unban lets Bob back in
	_, err = cli1.runWithToken(token1, "match", "unban", auth2.User.ID)
	require.NoError(t, err)

	output, err = cli2.runWithToken(token2, "match", "join", matchID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	assert.Len(t, match.Players, 2)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Me without auth
	output, err := cli.run("auth", "me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "authentication required")

	// Join a non-existent match
	output, err = cli.run("auth", "register", "alice", "--password", "hunter22")
	require.NoError(t, err)
	var auth authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &auth))

	output, err = cli.runWithToken(auth.AccessToken, "match", "join", "zzzz9999")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")

	// Move without being in a match
	output, err = cli.runWithToken(auth.AccessToken, "match", "move", "rock")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not in a match")
}
