// Package auth serves the local browser form used by "imbo auth login
// --browser" to collect and verify Imbo credentials.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/config"
	"github.com/imbo/imbo-cli/internal/validation"
)

// SetupResult contains the result of a browser-based setup
type SetupResult struct {
	Account config.Account
	User    api.User
}

// VerifyFunc checks an account against its server.
type VerifyFunc func(ctx context.Context, account config.Account) (api.User, error)

// SetupServer handles the browser-based setup flow
type SetupServer struct {
	// Out receives the setup URL and browser hints.
	Out io.Writer
	// Verify defaults to fetching the user from the server.
	Verify VerifyFunc

	result        chan SetupResult
	shutdown      chan struct{}
	pendingResult *SetupResult
	csrfToken     string
	profile       string
}

var (
	setupPage   = template.Must(template.New("setup").Parse(setupTemplate))
	successPage = template.Must(template.New("success").Parse(successTemplate))
)

// NewSetupServer creates a setup server that saves credentials under profile.
func NewSetupServer(profile string) (*SetupServer, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	return &SetupServer{
		Out:       os.Stdout,
		Verify:    VerifyAccount,
		result:    make(chan SetupResult, 1),
		shutdown:  make(chan struct{}),
		csrfToken: hex.EncodeToString(tokenBytes),
		profile:   profile,
	}, nil
}

// VerifyAccount fetches the account's user, which needs a valid access token.
func VerifyAccount(ctx context.Context, account config.Account) (api.User, error) {
	client := api.New(account.Hosts, api.Credentials{
		User:       account.User,
		PublicKey:  account.PublicKey,
		PrivateKey: account.PrivateKey,
	})
	return client.Users().Get(ctx)
}

// Routes returns the handler serving the setup flow.
func (s *SetupServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleSetup)
	r.Post("/validate", s.handleValidate)
	r.Post("/submit", s.handleSubmit)
	r.Get("/success", s.handleSuccess)
	r.Post("/complete", s.handleComplete)
	return r
}

// Start serves the setup form on a loopback port, opens the browser and
// waits until the form is completed or ctx is done.
func (s *SetupServer) Start(ctx context.Context) (*SetupResult, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	server := &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		_ = server.Serve(listener)
	}()
	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
		}
	}

	_, _ = fmt.Fprintf(s.Out, "Open this URL in your browser to configure imbo:\n  %s\n", baseURL)
	if err := openBrowser(baseURL); err != nil {
		_, _ = fmt.Fprintf(s.Out, "Could not open browser automatically: %v\n", err)
	}

	select {
	case result := <-s.result:
		stop()
		return &result, nil
	case <-ctx.Done():
		stop()
		return nil, ctx.Err()
	case <-s.shutdown:
		stop()
		if s.pendingResult != nil {
			return s.pendingResult, nil
		}
		return nil, fmt.Errorf("setup cancelled")
	}
}

func (s *SetupServer) handleSetup(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = setupPage.Execute(w, map[string]string{
		"CSRFToken": s.csrfToken,
		"Profile":   s.profile,
	})
}

type credentialsRequest struct {
	Hosts      []string `json:"hosts"`
	User       string   `json:"user"`
	PublicKey  string   `json:"public_key"`
	PrivateKey string   `json:"private_key"`
}

// decodeAccount reads and checks the posted credentials. On failure it has
// already written the response.
func (s *SetupServer) decodeAccount(w http.ResponseWriter, r *http.Request) (config.Account, bool) {
	if r.Header.Get("X-CSRF-Token") != s.csrfToken {
		http.Error(w, "Invalid CSRF token", http.StatusForbidden)
		return config.Account{}, false
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid request body",
		})
		return config.Account{}, false
	}

	account := config.Account{
		Hosts:      req.Hosts,
		User:       strings.TrimSpace(req.User),
		PublicKey:  strings.TrimSpace(req.PublicKey),
		PrivateKey: req.PrivateKey,
	}.WithDefaults()

	if err := account.Validate(); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return config.Account{}, false
	}
	for _, host := range account.Hosts {
		if err := validation.ValidateHostURL(host); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("Invalid host %s: %v", host, err),
			})
			return config.Account{}, false
		}
	}
	return account, true
}

// handleValidate tests credentials without saving
func (s *SetupServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	account, ok := s.decodeAccount(w, r)
	if !ok {
		return
	}
	user, err := s.Verify(r.Context(), account)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("Connection failed: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Connection successful!",
		"user":       user.ID,
		"num_images": user.NumImages,
	})
}

// handleSubmit saves credentials after validation
func (s *SetupServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	account, ok := s.decodeAccount(w, r)
	if !ok {
		return
	}
	user, err := s.Verify(r.Context(), account)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("Connection failed: %v", err),
		})
		return
	}

	if err := config.SaveProfile(s.profile, account); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("Failed to save credentials: %v", err),
		})
		return
	}

	s.pendingResult = &SetupResult{Account: account, User: user}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"user":       user.ID,
		"num_images": user.NumImages,
	})
}

func (s *SetupServer) handleSuccess(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = successPage.Execute(w, map[string]string{
		"User":    r.URL.Query().Get("user"),
		"Profile": s.profile,
	})
}

// handleComplete signals that setup is done
func (s *SetupServer) handleComplete(w http.ResponseWriter, _ *http.Request) {
	select {
	case <-s.shutdown:
	default:
		if s.pendingResult != nil {
			s.result <- *s.pendingResult
		}
		close(s.shutdown)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	if shouldSkipAutoBrowserOpen() {
		return nil
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}

func shouldSkipAutoBrowserOpen() bool {
	if flag.Lookup("test.v") != nil {
		return true
	}
	noBrowser := strings.TrimSpace(strings.ToLower(os.Getenv("IMBO_NO_BROWSER")))
	if noBrowser == "1" || noBrowser == "true" || noBrowser == "yes" {
		return true
	}
	return os.Getenv("IMBO_TESTING") == "1"
}
