// Package kdb reads and writes KeePass v1 (.kdb) password database files:
// key derivation from a passphrase and/or key file, the AES-CBC payload
// cipher, the group/entry TLV codec, and hierarchy reconstruction from the
// flat, level-annotated group sequence.
package kdb

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/kdbtools/kdb/kdberr"
	"github.com/kdbtools/kdb/observability"
)

// Database owns a Header, the ordered Group and Entry sequences, and the
// credentials used to derive its encryption key (spec section 3).
type Database struct {
	Header      Header
	Groups      []Group
	Entries     []Entry
	Credentials Credentials

	// Observer receives operation-level events (Opened, Saved, ...). It
	// defaults to a no-op and is safe to leave unset.
	Observer observability.Observer

	// path is the file Open/OpenObserved last read the database from, or
	// the last path SaveAs wrote it to. Save uses it so a caller that
	// only ever touches one file doesn't have to keep repeating the path.
	path string

	// diagnostics collects non-fatal issues surfaced on a side channel
	// rather than as errors, per spec section 7 (e.g. UnknownGroupID).
	diagnostics []string
}

func (db *Database) observer() observability.Observer {
	if db.Observer == nil {
		return observability.NoopObserver
	}
	return db.Observer
}

// defaultTransformRounds is a conservative key-strengthening round count
// for freshly authored databases; it has no bearing on files this
// library loads, whose TransformRounds is always honored verbatim.
const defaultTransformRounds = 6000

// Empty returns a new, in-memory database with freshly generated seeds
// and IV, ready to have groups/entries added and eventually saved.
func Empty(creds Credentials) (*Database, error) {
	var h Header
	h.Flags = flagRijndael
	h.Version = versionMajorWant | 0x0002
	h.TransformRounds = defaultTransformRounds
	if err := randomFill(h.MasterSeed[:]); err != nil {
		return nil, kdberr.Wrap("empty", kdberr.CodeIO, err)
	}
	if err := randomFill(h.EncryptionIV[:]); err != nil {
		return nil, kdberr.Wrap("empty", kdberr.CodeIO, err)
	}
	if err := randomFill(h.TransformSeed[:]); err != nil {
		return nil, kdberr.Wrap("empty", kdberr.CodeIO, err)
	}
	return &Database{Header: h, Credentials: creds}, nil
}

func randomFill(b []byte) error {
	_, err := rand.Read(b)
	return err
}

// Open reads a kdb file at path, deriving the decryption key from creds
// and verifying the decrypted payload's integrity hash before parsing
// the group and entry records (spec section 4.5).
func Open(path string, creds Credentials) (*Database, error) {
	return OpenObserved(path, creds, nil)
}

// OpenObserved is Open, reporting DecryptFailed/IntegrityFailed to obs
// even on a failed open (obs may be nil, meaning no observer).
func OpenObserved(path string, creds Credentials, obs observability.Observer) (*Database, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, kdberr.Wrap("open", kdberr.CodeIO, err)
	}
	db, err := LoadObserved(raw, creds, obs)
	if err != nil {
		return nil, err
	}
	db.path = path
	return db, nil
}

// Load parses a kdb file already read into memory, exactly as Open does
// internally. It is exposed so callers that already hold the bytes (or
// tests pinning known-answer vectors) do not need a filesystem round trip.
func Load(raw []byte, creds Credentials) (*Database, error) {
	return LoadObserved(raw, creds, nil)
}

// LoadObserved is Load, reporting DecryptFailed/IntegrityFailed to obs
// even on a failed load (obs may be nil, meaning no observer).
func LoadObserved(raw []byte, creds Credentials, obs observability.Observer) (*Database, error) {
	if obs == nil {
		obs = observability.NoopObserver
	}
	db, err := load(raw, creds)
	if err != nil {
		switch {
		case kdberr.Is(err, kdberr.CodeIntegrityCheckFailed):
			obs.IntegrityFailed()
		case kdberr.Is(err, kdberr.CodeDecryptionFailed):
			obs.DecryptFailed()
		}
		return nil, err
	}
	if db.Observer == nil {
		db.Observer = obs
	}
	db.observer().Opened()
	return db, nil
}

func load(raw []byte, creds Credentials) (*Database, error) {
	const op = "open"
	if len(raw) < HeaderSize {
		return nil, kdberr.Wrap(op, kdberr.CodeTruncated, nil)
	}
	header, err := decodeHeader(raw[:HeaderSize])
	if err != nil {
		return nil, err
	}
	body := raw[HeaderSize:]

	key, err := deriveFinalKey(creds, header.TransformSeed, header.TransformRounds, header.MasterSeed)
	if err != nil {
		return nil, err
	}

	plain, err := decryptPayload(key, header.EncryptionIV, body, header.ContentsHash, header.NGroups)
	if err != nil {
		return nil, err
	}

	db := &Database{Header: header, Credentials: creds}

	offset := 0
	groups := make([]Group, 0, header.NGroups)
	for i := uint32(0); i < header.NGroups; i++ {
		g, n, gerr := decodeGroup(plain[offset:])
		if gerr != nil {
			return nil, gerr
		}
		groups = append(groups, g)
		offset += n
	}

	entries := make([]Entry, 0, header.NEntries)
	for i := uint32(0); i < header.NEntries; i++ {
		e, n, eerr := decodeEntry(plain[offset:])
		if eerr != nil {
			return nil, eerr
		}
		entries = append(entries, e)
		offset += n
	}

	if offset != len(plain) {
		return nil, kdberr.Wrap(op, kdberr.CodeTrailingGarbage, nil)
	}

	db.Groups = groups
	db.Entries = entries

	known := make(map[uint32]struct{}, len(groups))
	for _, g := range groups {
		known[g.GroupID] = struct{}{}
	}
	for _, e := range entries {
		if _, ok := known[e.GroupID]; !ok {
			db.diagnostics = append(db.diagnostics, "entry with unknown groupid: "+e.Title)
		}
	}

	return db, nil
}

// Diagnostics returns non-fatal issues accumulated since the database
// was opened, plus those appended by each Hierarchy call — for example
// entries whose groupid matches no group (spec section 7). The list is
// never cleared. They never cause Open or Hierarchy to fail.
func (db *Database) Diagnostics() []string {
	return append([]string(nil), db.diagnostics...)
}

// Save re-encodes and re-encrypts the database and writes it back to
// the path it was last opened or saved from. It fails with CodeNoPath
// if the database has no such path yet (for example one built with
// Empty and never saved) — use SaveAs to give it one.
func (db *Database) Save() error {
	if db.path == "" {
		return kdberr.Wrap("save", kdberr.CodeNoPath, nil)
	}
	return db.SaveAs(db.path)
}

// SaveAs encodes the current groups and entries, recomputes the content
// hash, encrypts under the database's preserved seeds/IV, and writes
// the result to path atomically (temp file + fsync + rename), per spec
// section 4.7's write(path?). On success, path becomes the database's
// path for subsequent zero-argument Save calls.
func (db *Database) SaveAs(path string) error {
	db.Header.NGroups = uint32(len(db.Groups))
	db.Header.NEntries = uint32(len(db.Entries))
	db.Header.Flags |= flagRijndael

	var plain []byte
	for _, g := range db.Groups {
		plain = append(plain, encodeGroup(g)...)
	}
	for _, e := range db.Entries {
		plain = append(plain, encodeEntry(e)...)
	}
	db.Header.ContentsHash = sha256.Sum256(plain)

	key, err := deriveFinalKey(db.Credentials, db.Header.TransformSeed, db.Header.TransformRounds, db.Header.MasterSeed)
	if err != nil {
		return err
	}
	ciphertext, err := encryptPayload(key, db.Header.EncryptionIV, plain)
	if err != nil {
		return err
	}

	out := append(encodeHeader(db.Header), ciphertext...)
	if err := writeKdbFileAtomic(path, out); err != nil {
		return kdberr.Wrap("save", kdberr.CodeIO, err)
	}
	db.path = path
	db.observer().Saved()
	return nil
}

// writeKdbFileAtomic publishes the encrypted blob at path via a sibling
// temp file that is synced and renamed into place, so a reader never
// observes a partially written database even if the process is killed
// mid-write. Unlike a general-purpose atomic-write helper, this always
// writes with owner-only permissions: a .kdb file holds an encryption
// key derivation's worth of secrets and there is no caller-supplied
// permission to thread through.
func writeKdbFileAtomic(path string, data []byte) error {
	const kdbFilePerm = 0o600

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	published := false
	defer func() {
		_ = f.Close()
		if !published {
			_ = os.Remove(tmp)
		}
	}()

	if runtime.GOOS != "windows" {
		if err := f.Chmod(kdbFilePerm); err != nil {
			return err
		}
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if runtime.GOOS == "windows" {
		// Rename cannot replace an existing file on Windows.
		_ = os.Remove(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, kdbFilePerm); err != nil {
			return err
		}
	}
	published = true
	return nil
}

// Get returns the first entry whose Title exactly matches, in insertion
// order, or nil if none match.
func (db *Database) Get(title string) *Entry {
	for i := range db.Entries {
		if db.Entries[i].Title == title {
			return &db.Entries[i]
		}
	}
	return nil
}

// FindGroup returns the first group whose named field equals value.
// Supported fields mirror the small set of comparable Group fields the
// original client exposed: "groupid", "group_name", "level", "image_id",
// "flags".
func (db *Database) FindGroup(field, value string) (*Group, error) {
	for i := range db.Groups {
		g := &db.Groups[i]
		var cmp string
		switch field {
		case "groupid":
			cmp = strconv.FormatUint(uint64(g.GroupID), 10)
		case "group_name":
			cmp = g.GroupName
		case "level":
			cmp = strconv.FormatUint(uint64(g.Level), 10)
		case "image_id":
			cmp = strconv.FormatUint(uint64(g.ImageID), 10)
		case "flags":
			cmp = strconv.FormatUint(uint64(g.Flags), 10)
		default:
			return nil, kdberr.Wrap("find_group", kdberr.CodeMalformedField, errUnknownGroupField)
		}
		if cmp == value {
			return g, nil
		}
	}
	return nil, nil
}

// Hierarchy rebuilds the group tree fresh from the current flat
// Groups/Entries sequences; it never caches, per spec section 4.7.
// Entries whose groupid matches no group are appended to Diagnostics
// rather than silently dropped, and ride along on the returned root
// node's own Entries so that ReplaceFromHierarchy, given the tree back
// unmodified, does not delete them. A caller that wants to discard them
// can still clear root.Entries itself before calling ReplaceFromHierarchy.
func (db *Database) Hierarchy() (*Node, error) {
	root, orphans, err := Reconstruct(db.Groups, db.Entries)
	if err != nil {
		return nil, err
	}
	for _, o := range orphans {
		db.diagnostics = append(db.diagnostics, "entry with unknown groupid: "+o.Title)
	}
	root.Entries = append(root.Entries, orphans...)
	return root, nil
}

// ReplaceContents replaces the database's groups and entries wholesale.
// This is the one mutation entry point the source's ambiguous, doubly
// defined "update" method should have been (spec section 9, item 2).
func (db *Database) ReplaceContents(groups []Group, entries []Entry) {
	db.Groups = groups
	db.Entries = entries
}

// ReplaceFromHierarchy flattens an edited tree (as returned by
// Hierarchy, then mutated by the caller) back into the flat
// Groups/Entries sequences, recomputing each group's Level from tree
// depth. This is the hierarchy-aware counterpart ReplaceContents does
// not need to also shoulder (spec section 9, item 2).
func (db *Database) ReplaceFromHierarchy(root *Node) {
	db.ReplaceContents(Flatten(root), FlattenEntries(root))
}

// GenGroupID returns a uniformly random group id in 1..2^32-2, rejecting
// collisions with existing group ids.
func (db *Database) GenGroupID() (uint32, error) {
	existing := make(map[uint32]struct{}, len(db.Groups))
	for _, g := range db.Groups {
		existing[g.GroupID] = struct{}{}
	}
	for {
		id, err := randomUint32InRange(1, 0xFFFFFFFE)
		if err != nil {
			return 0, kdberr.Wrap("gen_groupid", kdberr.CodeIO, err)
		}
		if _, collide := existing[id]; !collide {
			return id, nil
		}
	}
}

// randomUint32InRange returns a uniformly random uint32 in [lo, hi] via
// rejection sampling, avoiding the modulo bias a naive "% range" would
// introduce.
func randomUint32InRange(lo, hi uint32) (uint32, error) {
	span := uint64(hi) - uint64(lo) + 1
	limit := (uint64(1) << 32) / span * span
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint32(buf[:]))
		if v < limit {
			return lo + uint32(v%span), nil
		}
	}
}

// GenUUID returns 16 cryptographically random bytes suitable for an
// entry's UUID. The source's gen_uuid returned a constant (4) — a bug
// this implementation does not replicate (spec section 9, item 1).
func GenUUID() ([16]byte, error) {
	var out [16]byte
	if _, err := rand.Read(out[:]); err != nil {
		return [16]byte{}, kdberr.Wrap("gen_uuid", kdberr.CodeIO, err)
	}
	return out, nil
}

// AddMode selects how AddEntry treats an existing entry at the same
// path/title/username.
type AddMode int

const (
	// AddAppend always appends a new entry, even if one matches.
	AddAppend AddMode = iota
	// AddReplace overwrites the first matching entry in place.
	AddReplace
)

// EntryOptions carries AddEntry's optional fields.
type EntryOptions struct {
	URL     string
	Notes   string
	ImageID uint32
	Now     *PackedDateTime
}

func (o EntryOptions) nowOrDefault() PackedDateTime {
	if o.Now != nil {
		return *o.Now
	}
	return defaultExpireTime
}

// AddEntry adds an entry to the group named by the slash-separated path,
// creating any missing intermediate groups ("mkdir -p" semantics) with
// freshly generated group ids. In AddReplace mode, an existing entry
// matching path+title+username is overwritten instead of duplicated.
func (db *Database) AddEntry(path, title, username, password string, opts EntryOptions, mode AddMode) error {
	group, err := db.mkdirGroupPath(path)
	if err != nil {
		return err
	}

	if mode == AddReplace {
		for i := range db.Entries {
			e := &db.Entries[i]
			if e.Title == title && e.Username == username && e.GroupID == group.GroupID {
				applyEntryOptions(e, group.GroupID, title, username, password, opts)
				return nil
			}
		}
	}

	uuid, err := GenUUID()
	if err != nil {
		return err
	}
	e := NewEntry(uuid, group.GroupID, opts.nowOrDefault())
	applyEntryOptions(&e, group.GroupID, title, username, password, opts)
	db.Entries = append(db.Entries, e)
	return nil
}

func applyEntryOptions(e *Entry, groupID uint32, title, username, password string, opts EntryOptions) {
	e.GroupID = groupID
	e.Title = title
	e.Username = username
	e.Password = password
	e.URL = opts.URL
	e.Notes = opts.Notes
	e.ImageID = opts.ImageID
}

// mkdirGroupPath finds, creating as needed, the group named by a
// "/"-separated path of group names, mirroring mkdir -p. The flat group
// list stores no parent pointers (spec section 9), so a missing segment
// is inserted immediately after its parent's existing subtree — the
// only position that keeps the flat, level-annotated sequence a valid
// pre-order forest.
func (db *Database) mkdirGroupPath(path string) (*Group, error) {
	parts := splitGroupPath(path)
	if len(parts) == 0 {
		return nil, kdberr.Wrap("mkdir_group_path", kdberr.CodeMalformedField, nil)
	}

	parentIdx := -1
	for depth, name := range parts {
		idx := db.findChildGroup(parentIdx, depth, name)
		if idx < 0 {
			id, err := db.GenGroupID()
			if err != nil {
				return nil, err
			}
			g := NewGroup(id, defaultExpireTime)
			g.GroupName = name
			g.Level = uint16(depth)
			insertAt := db.subtreeEnd(parentIdx)
			db.Groups = insertGroup(db.Groups, insertAt, g)
			idx = insertAt
		}
		parentIdx = idx
	}
	return &db.Groups[parentIdx], nil
}

func splitGroupPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// findChildGroup looks for a direct child named name at the given depth
// within parentIdx's subtree (-1 meaning the top-level forest).
func (db *Database) findChildGroup(parentIdx, depth int, name string) int {
	start := parentIdx + 1
	end := db.subtreeEnd(parentIdx)
	for i := start; i < end; i++ {
		if int(db.Groups[i].Level) == depth && db.Groups[i].GroupName == name {
			return i
		}
	}
	return -1
}

// subtreeEnd returns the index just past parentIdx's full subtree
// (-1 meaning the end of the entire flat group list).
func (db *Database) subtreeEnd(parentIdx int) int {
	if parentIdx < 0 {
		return len(db.Groups)
	}
	parentLevel := db.Groups[parentIdx].Level
	i := parentIdx + 1
	for i < len(db.Groups) && db.Groups[i].Level > parentLevel {
		i++
	}
	return i
}

func insertGroup(groups []Group, at int, g Group) []Group {
	groups = append(groups, Group{})
	copy(groups[at+1:], groups[at:])
	groups[at] = g
	return groups
}
