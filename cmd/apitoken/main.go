package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"hashdrop/internal/database"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "./data"
	// minTokenLength applies to tokens typed by the user
	minTokenLength = 12
)

// hashCost is the bcrypt cost for stored hashes. Tests lower it.
var hashCost = bcrypt.DefaultCost

// tokenStore is the part of the database the commands need.
type tokenStore interface {
	APITokenHash(ctx context.Context) (string, error)
	SetAPITokenHash(ctx context.Context, hash string) error
}

// secretReader reads one secret without echo.
type secretReader func() ([]byte, error)

func readTerminal() ([]byte, error) {
	secret, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	return secret, err
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	// hash needs no database
	if command == "hash" {
		if !printHash(readTerminal, os.Stdout, os.Stderr) {
			os.Exit(1)
		}
		return
	}

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "history.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ok := true
	switch command {
	case "set":
		ok = setToken(ctx, db, readTerminal, os.Stdout, os.Stderr)
	case "generate":
		ok = generateToken(ctx, db, os.Stdout, os.Stderr)
	case "clear":
		ok = clearToken(ctx, db, os.Stdout, os.Stderr)
	case "verify":
		ok = verifyToken(ctx, db, readTerminal, os.Stdout, os.Stderr)
	case "status":
		ok = showStatus(ctx, db, os.Stdout, os.Stderr)
	default:
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // only [a-zA-Z0-9_-] pass sanitizeCommand
		printUsage()
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("hashdrop API token management")
	fmt.Println("")
	fmt.Println("Usage: apitoken <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  generate - Create a random token and store its hash")
	fmt.Println("  set      - Store the hash of a token typed at the prompt")
	fmt.Println("  clear    - Remove the stored token (the API becomes open)")
	fmt.Println("  verify   - Check a typed token against the stored hash")
	fmt.Println("  status   - Show whether a token is configured")
	fmt.Println("  hash     - Print a hash for API_TOKEN_HASH without touching the database")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

// readConfirmed prompts twice and checks both entries match.
func readConfirmed(read secretReader, out io.Writer) ([]byte, error) {
	fmt.Fprint(out, "Token: ")
	token, err := read()
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}

	fmt.Fprint(out, "Confirm Token: ")
	confirm, err := read()
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}

	if !bytes.Equal(token, confirm) {
		return nil, errors.New("tokens do not match")
	}
	if len(token) < minTokenLength {
		return nil, fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	return token, nil
}

func printHash(read secretReader, out, errOut io.Writer) bool {
	token, err := readConfirmed(read, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return false
	}

	hash, err := bcrypt.GenerateFromPassword(token, hashCost)
	if err != nil {
		fmt.Fprintf(errOut, "Error: Failed to hash token: %v\n", err)
		return false
	}
	fmt.Fprintln(out, string(hash))
	return true
}

func storeToken(ctx context.Context, db tokenStore, token []byte) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword(token, hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}
	if err := db.SetAPITokenHash(ctx, string(hash)); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func setToken(ctx context.Context, db tokenStore, read secretReader, out, errOut io.Writer) bool {
	token, err := readConfirmed(read, out)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return false
	}
	if err := storeToken(ctx, db, token); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return false
	}

	fmt.Fprintln(out, "Token stored. Restart the server to apply it.")
	return true
}

func generateToken(ctx context.Context, db tokenStore, out, errOut io.Writer) bool {
	token := rand.Text()
	if err := storeToken(ctx, db, []byte(token)); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return false
	}

	fmt.Fprintln(out, "Token stored. It is shown only once:")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "  %s\n", token)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Restart the server to apply it.")
	return true
}

func clearToken(ctx context.Context, db tokenStore, out, errOut io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.SetAPITokenHash(ctx, ""); err != nil {
		fmt.Fprintf(errOut, "Error: Failed to clear token: %v\n", err)
		return false
	}
	fmt.Fprintln(out, "Token cleared. The API is open unless API_TOKEN_HASH is set.")
	return true
}

func verifyToken(ctx context.Context, db tokenStore, read secretReader, out, errOut io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := db.APITokenHash(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "Error: Failed to read token: %v\n", err)
		return false
	}
	if hash == "" {
		fmt.Fprintln(errOut, "Error: No token configured")
		return false
	}

	fmt.Fprint(out, "Token: ")
	token, err := read()
	if err != nil {
		fmt.Fprintf(errOut, "Error reading token: %v\n", err)
		return false
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), token) != nil {
		fmt.Fprintln(errOut, "Token does not match")
		return false
	}
	fmt.Fprintln(out, "Token matches")
	return true
}

func showStatus(ctx context.Context, db tokenStore, out, errOut io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := db.APITokenHash(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "Error: Failed to read token: %v\n", err)
		return false
	}

	if hash != "" {
		fmt.Fprintln(out, "Status: API token is configured")
	} else {
		fmt.Fprintln(out, "Status: No API token configured (the API is open)")
	}
	if os.Getenv("API_TOKEN_HASH") != "" {
		fmt.Fprintln(out, "Note: API_TOKEN_HASH is set and takes precedence")
	}
	return true
}
