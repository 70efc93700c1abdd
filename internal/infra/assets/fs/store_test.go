package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"configedit/internal/assets/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "assets"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStorePutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "Engineering/GV_N677F/TEMP.dat", bytes.NewReader([]byte("1 2 3")), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "Engineering/GV_N677F/TEMP.dat", bytes.NewReader([]byte("4 5")), core.PutOptions{}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_, rc, err := store.Get(ctx, "Engineering/GV_N677F/TEMP.dat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "4 5" {
		t.Fatalf("expected overwritten content, got %q", b)
	}
	h, err := store.Head(ctx, "Engineering/GV_N677F/TEMP.dat")
	if err != nil || h.Size != 3 || h.ETag == info.ETag {
		t.Fatalf("unexpected head %+v err %v", h, err)
	}

	if _, err := store.Put(ctx, "Engineering/GV_N677F/PSFD.dat", bytes.NewReader(nil), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if _, err := store.Put(ctx, "project.xml", bytes.NewReader([]byte("<project/>")), core.PutOptions{}); err != nil {
		t.Fatalf("put third: %v", err)
	}
	list, err := store.List(ctx, "Engineering/GV_N677F/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "Engineering/GV_N677F/PSFD.dat" {
		t.Fatalf("unexpected list %+v", list)
	}

	ok, err := store.Delete(ctx, "project.xml")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "project.xml")
	if err != nil || ok {
		t.Fatalf("second delete should report missing: %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, "project.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreServesHandMaintainedFiles(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	dir := filepath.Join(store.Root(), "cal")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "VOLT1.dat"), []byte("0 1"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	list, err := store.List(ctx, "cal/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "cal/VOLT1.dat" || list[0].Size != 3 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestSanitizeKeyRejectsEscapes(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../b"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
	store := newTempStore(t)
	if _, err := store.Put(context.Background(), "../x", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected put to reject traversal")
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver")
	}
}
