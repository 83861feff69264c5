package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// LoginOptions tunes the authorization-code flow
type LoginOptions struct {
	ListenAddr  string        // defaults to ":8089"
	Timeout     time.Duration // defaults to AuthTimeout
	OpenBrowser bool
	Out         io.Writer // where the consent URL is printed; nil discards
}

// Login runs the authorization-code flow with a local callback server and
// exchanges the code for a token pair.
func Login(ctx context.Context, cfg *oauth2.Config, opts LoginOptions) (*AuthResult, error) {
	if opts.ListenAddr == "" {
		opts.ListenAddr = fmt.Sprintf(":%d", CallbackPort)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = AuthTimeout
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	// Generate state for CSRF protection
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	listener, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: callbackHandler(state, codeChan, errChan)}

	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			select {
			case errChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()
	defer shutdownServer(server)

	authURL := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))
	fmt.Fprintln(opts.Out)
	fmt.Fprintln(opts.Out, "To authenticate with Strava, open this URL in your browser:")
	fmt.Fprintln(opts.Out)
	fmt.Fprintf(opts.Out, "  %s\n", authURL)
	fmt.Fprintln(opts.Out)
	fmt.Fprintln(opts.Out, "Waiting for authentication...")

	if opts.OpenBrowser {
		if err := browser.OpenURL(authURL); err != nil {
			log.Warn().Err(err).Msg("Could not open browser, use the URL above")
		}
	}

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-time.After(opts.Timeout):
		return nil, fmt.Errorf("authentication timeout after %v", opts.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging code for token: %w", ErrAuthFailure, err)
	}

	return &AuthResult{
		Token:     token,
		AthleteID: ExtractAthleteID(token),
	}, nil
}

func callbackHandler(state string, codeChan chan<- string, errChan chan<- error) http.Handler {
	fail := func(err error) {
		select {
		case errChan <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			fail(fmt.Errorf("state mismatch - possible CSRF attack"))
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}

		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			fail(fmt.Errorf("%w: %s", ErrAuthFailure, errMsg))
			http.Error(w, "Authentication failed", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			fail(fmt.Errorf("no code in callback"))
			http.Error(w, "No authorization code", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1 style="color: #FC4C02;">Connected to Strava</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)
		select {
		case codeChan <- code:
		default:
		}
	})
	return mux
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownServer gracefully shuts down the HTTP server
func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
