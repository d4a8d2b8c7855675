// Command kdbtool is a worked example of the kdb library: a minimal CLI
// for listing, reading, and editing entries in a KeePass v1 database,
// per the CLI contract in the library's spec.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/kdbtools/kdb"
	"github.com/kdbtools/kdb/kdberr"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// usageError marks a kdbtool argument/flag mistake, as opposed to a
// database error: run maps it to exit code 2 instead of 1.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func isUsage(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Stdin))
}

func run(args []string, stdout, stderr io.Writer, stdin io.Reader) int {
	var (
		passphrase  string
		askPass     bool
		keyfilePath string
		showVersion bool
		overwrite   bool
		jsonOut     bool
	)

	fs := flag.NewFlagSet("kdbtool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&passphrase, "p", passphraseFromEnv(), "database passphrase")
	fs.BoolVar(&askPass, "ask", false, "prompt for the passphrase on stderr instead of -p")
	fs.StringVar(&keyfilePath, "k", "", "path to a key file (64 hex chars decoding to 32 bytes)")
	fs.BoolVar(&overwrite, "overwrite", false, "allow 'create' to overwrite an existing file")
	fs.BoolVar(&jsonOut, "json", false, "emit 'list' output as JSON lines")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		fmt.Fprintln(stdout, kdbtoolVersionLine(buildVersion, buildCommit, buildDate))
		return 0
	}

	rest := fs.Args()
	if len(rest) < 2 {
		fmt.Fprintln(stderr, "usage: kdbtool [-p passphrase | -ask] [-k keyfile] <kdb-file> <command> [args]")
		fmt.Fprintln(stderr, "commands: create, list, get <title> <key>, set <title> <k=v>..., add <title> <k=v>..., del <title>")
		return 2
	}
	path, cmdName, cmdArgs := rest[0], rest[1], rest[2:]

	if askPass {
		fmt.Fprint(stderr, "passphrase: ")
		raw, err := term.ReadPassword(int(fileDescriptor(stdin)))
		fmt.Fprintln(stderr)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		passphrase = string(raw)
	}

	creds, err := loadCredentials(passphrase, keyfilePath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if cmdName == "create" {
		if err := cmdCreate(path, creds, overwrite); err != nil {
			fmt.Fprintln(stderr, err)
			if isUsage(err) {
				return 2
			}
			return 1
		}
		return 0
	}

	db, err := kdb.Open(path, creds)
	if err != nil {
		fmt.Fprintln(stderr, diagnose(err))
		return 1
	}

	switch cmdName {
	case "list":
		err = cmdList(db, stdout, jsonOut)
	case "get":
		err = cmdGet(db, cmdArgs, stdout)
	case "set":
		err = cmdSet(db, cmdArgs)
	case "add":
		err = cmdAdd(db, cmdArgs)
	case "del":
		err = cmdDel(db, cmdArgs)
	default:
		err = &usageError{msg: "unknown command: " + cmdName}
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		if isUsage(err) {
			return 2
		}
		return 1
	}

	switch cmdName {
	case "set", "add", "del":
		if err := db.Save(); err != nil {
			fmt.Fprintln(stderr, diagnose(err))
			return 1
		}
	}
	return 0
}

// passphraseFromEnv is kdbtool's one env-var fallback: KDBTOOL_PASSPHRASE,
// trimmed, used as the -p default so scripted callers need not put a
// secret on the command line.
func passphraseFromEnv() string {
	return strings.TrimSpace(os.Getenv("KDBTOOL_PASSPHRASE"))
}

// diagnose renders a library error with the same wrong-key-or-damaged-
// file guidance for both failure modes a caller should not be able to
// tell apart (spec section 7).
func diagnose(err error) string {
	if kdberr.Is(err, kdberr.CodeIntegrityCheckFailed) || kdberr.Is(err, kdberr.CodeDecryptionFailed) {
		return kdberr.BadKeyGuidance
	}
	return err.Error()
}

func loadCredentials(passphrase, keyfilePath string) (kdb.Credentials, error) {
	creds := kdb.Credentials{Passphrase: passphrase}
	if keyfilePath == "" {
		return creds, nil
	}
	raw, err := os.ReadFile(keyfilePath)
	if err != nil {
		return kdb.Credentials{}, &usageError{msg: "reading key file: " + err.Error()}
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil || len(key) != 32 {
		return kdb.Credentials{}, &usageError{msg: "key file must contain 64 hex characters decoding to 32 bytes"}
	}
	creds.FileKey = key
	return creds, nil
}

type listRow struct {
	Title    string `json:"title"`
	Username string `json:"username"`
}

func cmdList(db *kdb.Database, stdout io.Writer, jsonOut bool) error {
	enc := json.NewEncoder(stdout)
	for _, e := range db.Entries {
		if e.Title == kdb.MetaInfoTitle {
			continue
		}
		if jsonOut {
			if err := enc.Encode(listRow{Title: e.Title, Username: e.Username}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", e.Title, e.Username)
	}
	for _, diag := range db.Diagnostics() {
		fmt.Fprintf(stdout, "# %s\n", diag)
	}
	return nil
}

// cmdCreate writes a fresh, empty database to path, refusing to clobber
// an existing file unless overwrite is set.
func cmdCreate(path string, creds kdb.Credentials, overwrite bool) error {
	if path != "" && !overwrite {
		if _, err := os.Stat(path); err == nil {
			return &usageError{msg: fmt.Sprintf("refusing to overwrite existing database: %s (use -overwrite)", path)}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	db, err := kdb.Empty(creds)
	if err != nil {
		return err
	}
	return db.SaveAs(path)
}

func cmdGet(db *kdb.Database, args []string, stdout io.Writer) error {
	if len(args) != 2 {
		return &usageError{msg: "usage: get <title> <key>"}
	}
	title, key := args[0], args[1]
	e := db.Get(title)
	if e == nil {
		return &usageError{msg: "no such entry: " + title}
	}
	switch key {
	case "username":
		fmt.Fprintln(stdout, e.Username)
	case "password":
		fmt.Fprintln(stdout, e.Password)
	case "url":
		fmt.Fprintln(stdout, e.URL)
	case "notes":
		fmt.Fprintln(stdout, e.Notes)
	default:
		return &usageError{msg: "unknown field: " + key}
	}
	return nil
}

func cmdSet(db *kdb.Database, args []string) error {
	if len(args) < 2 {
		return &usageError{msg: "usage: set <title> <k=v>..."}
	}
	title := args[0]
	e := db.Get(title)
	if e == nil {
		return &usageError{msg: "no such entry: " + title}
	}
	for _, kv := range args[1:] {
		if err := applyKV(e, kv); err != nil {
			return err
		}
	}
	return nil
}

func cmdAdd(db *kdb.Database, args []string) error {
	if len(args) < 1 {
		return &usageError{msg: "usage: add <title> <k=v>..."}
	}
	title := args[0]
	fields := map[string]string{}
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return &usageError{msg: "expected k=v, got: " + kv}
		}
		fields[k] = v
	}
	return db.AddEntry(fields["path"], title, fields["username"], fields["password"], kdb.EntryOptions{
		URL:   fields["url"],
		Notes: fields["notes"],
	}, kdb.AddAppend)
}

func cmdDel(db *kdb.Database, args []string) error {
	if len(args) != 1 {
		return &usageError{msg: "usage: del <title>"}
	}
	title := args[0]
	kept := db.Entries[:0]
	found := false
	for _, e := range db.Entries {
		if e.Title == title && !found {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return &usageError{msg: "no such entry: " + title}
	}
	db.ReplaceContents(db.Groups, kept)
	return nil
}

func applyKV(e *kdb.Entry, kv string) error {
	k, v, ok := strings.Cut(kv, "=")
	if !ok {
		return &usageError{msg: "expected k=v, got: " + kv}
	}
	switch k {
	case "username":
		e.Username = v
	case "password":
		e.Password = v
	case "url":
		e.URL = v
	case "notes":
		e.Notes = v
	default:
		return &usageError{msg: "unknown field: " + k}
	}
	return nil
}

// fileDescriptor extracts the fd from stdin when it is an *os.File,
// falling back to 0 (os.Stdin) otherwise — term.ReadPassword only works
// on an *os.File backed by a tty.
func fileDescriptor(r io.Reader) uintptr {
	if f, ok := r.(*os.File); ok {
		return f.Fd()
	}
	return 0
}
