package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionFlag(t *testing.T) {
	oldV, oldC, oldD := buildVersion, buildCommit, buildDate
	buildVersion, buildCommit, buildDate = "v1.2.3", "abc", "2020-01-01T00:00:00Z"
	t.Cleanup(func() { buildVersion, buildCommit, buildDate = oldV, oldC, oldD })

	var stdout, stderr bytes.Buffer
	code := run([]string{"-version"}, &stdout, &stderr, strings.NewReader(""))
	if code != 0 {
		t.Fatalf("unexpected exit code: %d (stderr=%q)", code, stderr.String())
	}
	got := strings.TrimSpace(stdout.String())
	want := "v1.2.3 (abc) 2020-01-01T00:00:00Z"
	if got != want {
		t.Fatalf("unexpected version output: got %q, want %q", got, want)
	}
}

func TestCreateThenAddThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kdb")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-p", "secret", path, "create"}, &stdout, &stderr, strings.NewReader(""))
	if code != 0 {
		t.Fatalf("create failed: exit=%d stderr=%q", code, stderr.String())
	}

	stdout.Reset()
	code = run([]string{"-p", "secret", path, "add", "Gmail", "path=Internet/Email", "username=me", "password=hunter2"}, &stdout, &stderr, strings.NewReader(""))
	if code != 0 {
		t.Fatalf("add failed: exit=%d stderr=%q", code, stderr.String())
	}

	stdout.Reset()
	code = run([]string{"-p", "secret", path, "get", "Gmail", "password"}, &stdout, &stderr, strings.NewReader(""))
	if code != 0 {
		t.Fatalf("get failed: exit=%d stderr=%q", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "hunter2" {
		t.Fatalf("want %q, got %q", "hunter2", got)
	}
}

func TestOpenWithWrongPassphraseReportsSharedGuidance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kdb")
	var stdout, stderr bytes.Buffer

	if code := run([]string{"-p", "right", path, "create"}, &stdout, &stderr, strings.NewReader("")); code != 0 {
		t.Fatalf("create failed: exit=%d stderr=%q", code, stderr.String())
	}

	stderr.Reset()
	code := run([]string{"-p", "wrong", path, "list"}, &stdout, &stderr, strings.NewReader(""))
	if code == 0 {
		t.Fatal("expected nonzero exit for wrong passphrase")
	}
	if !strings.Contains(stderr.String(), "wrong key or damaged file") {
		t.Fatalf("expected shared guidance message, got %q", stderr.String())
	}
}

func TestCreateRefusesOverwriteWithoutFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kdb")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-p", "x", path, "create"}, &stdout, &stderr, strings.NewReader("")); code != 0 {
		t.Fatalf("first create failed: exit=%d stderr=%q", code, stderr.String())
	}
	code := run([]string{"-p", "x", path, "create"}, &stdout, &stderr, strings.NewReader(""))
	if code != 2 {
		t.Fatalf("expected usage error exit code 2, got %d (stderr=%q)", code, stderr.String())
	}
}
