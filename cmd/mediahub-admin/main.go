package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"media-hub/internal/database"
	"media-hub/internal/media"
	"media-hub/internal/startup"
	"media-hub/internal/store"

	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
	databaseFileName   = "mediahub.db"
)

// stateStore is the part of the database the commands use.
type stateStore interface {
	store.Persistence
	DeleteMetadata(ctx context.Context, keys ...string) error
}

// console carries the streams a command talks to.
type console struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbPath, err := resolveDatabasePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	con := console{
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}

	exists, err := databaseExists(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot access database: %v\n", err)
		os.Exit(1)
	}
	if !exists {
		os.Exit(runWithoutDatabase(dbPath, os.Args[1:], con))
	}

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", filepath.Dir(dbPath))
		os.Exit(1)
	}

	code := run(ctx, db, os.Args[1:], con)

	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	os.Exit(code)
}

// resolveDatabasePath loads .env like the server does and returns the
// database file under DATABASE_DIR.
func resolveDatabasePath() (string, error) {
	if err := startup.LoadDotEnv(); err != nil {
		return "", err
	}
	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	return filepath.Join(databaseDir, databaseFileName), nil
}

// databaseExists reports whether path exists without creating it.
func databaseExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// runWithoutDatabase answers commands when no database file exists yet.
// Nothing is created: status and reset have nothing to act on.
func runWithoutDatabase(dbPath string, args []string, con console) int {
	switch args[0] {
	case "status", "reset":
		fmt.Fprintf(con.out, "Status: No database at %s (the server will seed on next start)\n", dbPath)
		return 0
	default:
		fmt.Fprintf(con.errOut, "Unknown command: %s\n", sanitizeCommand(args[0]))
		printUsage(con.errOut)
		return 1
	}
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, db stateStore, args []string, con console) int {
	switch args[0] {
	case "status":
		if !showStatus(ctx, db, con) {
			return 1
		}
	case "reset":
		assumeYes := len(args) > 1 && (args[1] == "-y" || args[1] == "--yes")
		if !resetState(ctx, db, con, assumeYes) {
			return 1
		}
	default:
		fmt.Fprintf(con.errOut, "Unknown command: %s\n", sanitizeCommand(args[0]))
		printUsage(con.errOut)
		return 1
	}
	return 0
}

// sanitizeCommand replaces anything but [a-zA-Z0-9_-] with '_' for display.
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

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Hub State Management")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: mediahub-admin <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status      - Show the persisted media store state")
	fmt.Fprintln(w, "  reset [-y]  - Delete the persisted state so the next start reseeds")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

func showStatus(ctx context.Context, db stateStore, con console) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	state, err := store.ReadState(ctx, db)
	if err != nil {
		var perr *store.PersistenceError
		if errors.As(err, &perr) {
			fmt.Fprintf(con.errOut, "Error: %v\n", err)
			return false
		}
		fmt.Fprintln(con.out, "Status: No persisted state (the server will seed on next start)")
		return true
	}

	photos, videos := 0, 0
	for _, m := range state.Media {
		if m.Type == media.KindVideo {
			videos++
		} else {
			photos++
		}
	}

	fmt.Fprintln(con.out, "Status: Persisted state found")
	fmt.Fprintf(con.out, "  Media items: %d (%d photo, %d video)\n", len(state.Media), photos, videos)
	fmt.Fprintf(con.out, "  Next id:     %d\n", state.NextID)
	fmt.Fprintf(con.out, "  User:        %s\n", state.User.Name)
	return true
}

func resetState(ctx context.Context, db stateStore, con console, assumeYes bool) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if !assumeYes {
		if !con.interactive {
			fmt.Fprintln(con.errOut, "Error: Not a terminal. Re-run with -y to confirm the reset.")
			return false
		}

		fmt.Fprint(con.out, "This deletes all uploaded media and the profile. Type 'yes' to continue: ")
		answer, err := bufio.NewReader(con.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(con.errOut, "Error reading confirmation: %v\n", err)
			return false
		}
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(con.out, "Aborted.")
			return false
		}
	}

	if err := db.DeleteMetadata(ctx, store.KeyMedia, store.KeyUser, store.KeyNextID); err != nil {
		fmt.Fprintf(con.errOut, "Error: Failed to reset state: %v\n", err)
		return false
	}

	fmt.Fprintln(con.out, "State reset. The server will seed the default dataset on next start.")
	return true
}
