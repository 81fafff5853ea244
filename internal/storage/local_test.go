package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adamancini/backcycle/internal/backup"
)

func writePackage(t *testing.T, l *Local, pkg backup.Package) string {
	t.Helper()
	dir := l.PackageDir(pkg)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range pkg.Filenames {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestNewLocal(t *testing.T) {
	if _, err := NewLocal(""); err == nil {
		t.Error("NewLocal(\"\") expected error")
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	l, err := NewLocal("~/backups")
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	if l.Path != filepath.Join(home, "backups") {
		t.Errorf("Path = %s, want %s", l.Path, filepath.Join(home, "backups"))
	}
}

func TestLocalPackageDir(t *testing.T) {
	l := &Local{Path: "/backups"}
	pkg := backup.New("nightly", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))

	want := filepath.Join("/backups", "nightly", "2024.05.06.07.08.09")
	if got := l.PackageDir(pkg); got != want {
		t.Errorf("PackageDir() = %s, want %s", got, want)
	}
}

func TestLocalRemove(t *testing.T) {
	l := &Local{Path: t.TempDir()}
	pkg := backup.New("nightly", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), "nightly.tar-aa", "nightly.tar-ab")
	dir := writePackage(t, l, pkg)

	if err := l.Remove(context.Background(), pkg); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("package directory still exists: %v", err)
	}
	if _, err := os.Stat(filepath.Join(l.Path, "nightly")); err != nil {
		t.Errorf("trigger directory should be kept: %v", err)
	}
}

func TestLocalRemoveKeepsForeignFiles(t *testing.T) {
	l := &Local{Path: t.TempDir()}
	pkg := backup.New("nightly", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), "nightly.tar")
	dir := writePackage(t, l, pkg)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := l.Remove(context.Background(), pkg); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("foreign file removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nightly.tar")); !os.IsNotExist(err) {
		t.Errorf("package file still exists: %v", err)
	}
}

func TestLocalRemoveMissingFile(t *testing.T) {
	l := &Local{Path: t.TempDir()}
	pkg := backup.New("nightly", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), "present.tar", "missing.tar")
	present := backup.New(pkg.Trigger, pkg.Time, "present.tar")
	writePackage(t, l, present)

	err := l.Remove(context.Background(), pkg)
	if err == nil {
		t.Fatal("Remove() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "missing.tar") {
		t.Errorf("error %q should name the missing file", err)
	}
	if _, statErr := os.Stat(filepath.Join(l.PackageDir(pkg), "present.tar")); !os.IsNotExist(statErr) {
		t.Error("present file should still be removed")
	}
}

func TestLocalRemoveRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	l := &Local{Path: filepath.Join(root, "store")}
	outside := filepath.Join(root, "outside.txt")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	pkg := backup.New("nightly", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), "../../../outside.txt")
	if err := l.Remove(context.Background(), pkg); err == nil {
		t.Error("Remove() expected error for path traversal")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside the storage was touched: %v", err)
	}
}

func TestLocalRemoveCancelled(t *testing.T) {
	l := &Local{Path: t.TempDir()}
	pkg := backup.New("nightly", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), "a.tar")
	writePackage(t, l, pkg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Remove(ctx, pkg); err == nil {
		t.Error("Remove() expected context error")
	}
}
