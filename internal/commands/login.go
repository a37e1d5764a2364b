package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"daysched/internal/backend/googletasks"
	"daysched/internal/config"
	"daysched/internal/exitcode"
	"daysched/internal/service"
	"daysched/internal/session"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5

	// TokenEnv supplies the bearer token when --token is not given.
	TokenEnv = "DAYSCHED_TOKEN"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd stores the username and credential used by every other
// command. With the http backend the bearer token comes from --token,
// $DAYSCHED_TOKEN or the first line of stdin. With the googletasks
// backend the token comes from the OAuth desktop flow and the username
// names the task list.
type LoginCmd struct {
	user  string
	token string
}

// SetUser sets the username (for testing).
func (c *LoginCmd) SetUser(user string) { c.user = user }

// SetToken sets the token (for testing).
func (c *LoginCmd) SetToken(token string) { c.token = token }

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Store username and credential" }
func (c *LoginCmd) Usage() string     { return "daysched login --user <name> [--token <token>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.user, "user", "", "")
	fs.StringVar(&c.user, "u", "", "")
	fs.StringVar(&c.token, "token", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string) int {
	cfg := env.Config
	store := session.Open(cfg.SessionPath())

	user := strings.TrimSpace(c.user)
	if user == "" {
		if sess, err := store.Load(); err == nil {
			if !cfg.Quiet {
				fmt.Fprintf(env.Out, "already logged in as %s\n", sess.Username)
			}
			return exitcode.Success
		}
		fmt.Fprintln(env.ErrOut, "error: username required (--user)")
		return exitcode.UserError
	}

	var token string
	var code int
	if cfg.Settings.Backend == config.BackendGoogleTasks {
		token, code = c.oauthToken(ctx, env)
	} else {
		token, code = c.bearerToken(env)
	}
	if code != exitcode.Success {
		return code
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(env.ErrOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := store.Save(service.Session{Username: user, Token: token}); err != nil {
		fmt.Fprintf(env.ErrOut, "error: failed to save session: %v\n", err)
		return exitcode.AuthError
	}
	env.logger().Debug("session saved", "user", user, "backend", cfg.Settings.Backend)

	if !cfg.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}

func (c *LoginCmd) bearerToken(env *Env) (string, int) {
	if token := strings.TrimSpace(c.token); token != "" {
		return token, exitcode.Success
	}
	if token := strings.TrimSpace(os.Getenv(TokenEnv)); token != "" {
		return token, exitcode.Success
	}
	if env.In == nil {
		fmt.Fprintln(env.ErrOut, "error: token required (--token or $"+TokenEnv+")")
		return "", exitcode.AuthError
	}

	fmt.Fprint(env.ErrOut, "token: ")
	line, err := bufio.NewReader(env.In).ReadString('\n')
	token := strings.TrimSpace(line)
	if token == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(env.ErrOut, "error: reading token: %v\n", err)
		} else {
			fmt.Fprintln(env.ErrOut, "error: token required (--token or $"+TokenEnv+")")
		}
		return "", exitcode.AuthError
	}
	return token, exitcode.Success
}

// oauthToken runs the desktop OAuth flow, saves token.json and returns the
// access token. A still-valid token.json is reused.
func (c *LoginCmd) oauthToken(ctx context.Context, env *Env) (string, int) {
	cfg, errOut := env.Config, env.ErrOut

	// Check if oauth_client.json exists
	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n\n", cfg.Dir)
		fmt.Fprintln(errOut, "To use the Google Tasks backend, you need OAuth credentials:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
		fmt.Fprintln(errOut, "2. Enable the Google Tasks API")
		fmt.Fprintln(errOut, "3. Create an OAuth client ID of type 'Desktop app' and download the JSON")
		fmt.Fprintf(errOut, "4. Save it as %s/oauth_client.json\n", cfg.Dir)
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Then run 'daysched login' again.")
		return "", exitcode.AuthError
	}

	oauthConfig, err := googletasks.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return "", exitcode.AuthError
	}

	// Reuse a token that can still be refreshed
	if token, ok := validToken(ctx, cfg, oauthConfig); ok {
		return token.AccessToken, exitcode.Success
	}

	// Find available port
	port, listener, err := findAvailablePort()
	if err != nil {
		fmt.Fprintf(errOut, "error: could not bind to local port for OAuth callback\n")
		return "", exitcode.AuthError
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	// PKCE
	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- fmt.Errorf("no code in callback")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return "", exitcode.AuthError
	case <-time.After(oauthCallbackTimeout):
		fmt.Fprintln(errOut, "error: oauth callback timed out")
		return "", exitcode.AuthError
	case <-ctx.Done():
		fmt.Fprintln(errOut, "error: cancelled")
		return "", exitcode.AuthError
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return "", exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return "", exitcode.AuthError
	}
	if err := saveToken(cfg.TokenPath(), token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return "", exitcode.AuthError
	}
	return token.AccessToken, exitcode.Success
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

// validToken returns the stored token if it has a refresh token and can
// still produce an access token.
func validToken(ctx context.Context, cfg *config.Config, oauthConfig *oauth2.Config) (*oauth2.Token, bool) {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, false
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, false
	}
	if token.RefreshToken == "" {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	fresh, err := oauthConfig.TokenSource(ctx, &token).Token()
	if err != nil {
		return nil, false
	}
	return fresh, true
}

// saveToken saves an OAuth token to a file with mode 0600.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
