package scriptfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadopc/sqlextract/internal/catalog"
)

func qn(schema, name string) catalog.QualifiedName {
	return catalog.QualifiedName{Schema: schema, Name: name}
}

func TestResolve(t *testing.T) {
	root := filepath.Join(".", "Scripts")
	tests := []struct {
		name string
		cat  catalog.Category
		sep  rune
		obj  catalog.QualifiedName
		want string
	}{
		{"split into directories", catalog.Function, '_', qn("dbo", "get_user_byId"), filepath.Join("Scripts", "Functions", "get", "user", "byId.sql")},
		{"no separator", catalog.Function, '_', qn("dbo", "Sum"), filepath.Join("Scripts", "Functions", "Sum.sql")},
		{"schema dropped", catalog.View, '_', qn("sales", "Orders"), filepath.Join("Scripts", "Views", "Orders.sql")},
		{"other separator", catalog.StoredProcedure, '.', qn("dbo", "app.users.insert"), filepath.Join("Scripts", "StoredProcedures", "app", "users", "insert.sql")},
		{"consecutive separators collapse", catalog.Trigger, '_', qn("dbo", "trg__audit"), filepath.Join("Scripts", "Triggers", "trg", "audit.sql")},
		{"leading and trailing separators", catalog.Trigger, '_', qn("dbo", "_audit_"), filepath.Join("Scripts", "Triggers", "audit.sql")},
		{"only separators", catalog.View, '_', qn("dbo", "__"), filepath.Join("Scripts", "Views", "__.sql")},
		{"dot dot escaped", catalog.View, '_', qn("dbo", ".._x"), filepath.Join("Scripts", "Views", "%2E%2E", "x.sql")},
		{"slash escaped", catalog.View, '_', qn("dbo", "a/b"), filepath.Join("Scripts", "Views", "a%2Fb.sql")},
		{"backslash escaped", catalog.View, '_', qn("dbo", `a\b`), filepath.Join("Scripts", "Views", "a%5Cb.sql")},
		{"percent escaped", catalog.View, '_', qn("dbo", "a%2Fb"), filepath.Join("Scripts", "Views", "a%252Fb.sql")},
		{"unicode separator", catalog.Function, '·', qn("dbo", "a·b"), filepath.Join("Scripts", "Functions", "a", "b.sql")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(root, tt.cat, tt.sep, tt.obj)
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	if _, err := Resolve("out", catalog.View, '_', qn("dbo", "")); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}
	if _, err := Resolve("out", catalog.Category(9), '_', qn("dbo", "x")); !errors.Is(err, catalog.ErrUnknownCategory) {
		t.Errorf("bad category error = %v, want ErrUnknownCategory", err)
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	root := t.TempDir()
	names := []string{"a", "a_b", "a_b_c", "get_user_by_id_v2", "x_y_z_w_v"}
	for _, local := range names {
		for _, cat := range catalog.Categories() {
			got, err := Resolve(root, cat, '_', qn("dbo", local))
			if err != nil {
				t.Fatal(err)
			}
			rel, err := filepath.Rel(filepath.Join(root, cat.Folder()), got)
			if err != nil {
				t.Fatal(err)
			}
			parts := strings.Split(rel, string(filepath.Separator))
			segs := strings.Split(local, "_")
			if len(parts)-1 != len(segs)-1 {
				t.Errorf("%s: %d directory levels, want %d", local, len(parts)-1, len(segs)-1)
			}
			if base := parts[len(parts)-1]; base != segs[len(segs)-1]+".sql" {
				t.Errorf("%s: file %q, want %q", local, base, segs[len(segs)-1]+".sql")
			}
		}
	}
}

func TestResolve_StaysInsideCategoryFolder(t *testing.T) {
	root := t.TempDir()
	for _, local := range []string{"..", "../etc/passwd", `..\..\x`, "._.._.", "a_.._b"} {
		got, err := Resolve(root, catalog.View, '_', qn("dbo", local))
		if err != nil {
			t.Fatal(err)
		}
		folder := filepath.Join(root, "Views") + string(filepath.Separator)
		if !strings.HasPrefix(got, folder) {
			t.Errorf("Resolve(%q) = %q escapes %q", local, got, folder)
		}
	}
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	text := "CREATE FUNCTION dbo.get_user_byId()\r\nRETURNS int AS BEGIN RETURN 1 END\n"

	path, err := Write(root, catalog.Function, '_', qn("dbo", "get_user_byId"), text)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if want := filepath.Join(root, "Functions", "get", "user", "byId.sql"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != text {
		t.Errorf("file content = %q, want verbatim %q", data, text)
	}
}

func TestWrite_IdempotentAndOverwrites(t *testing.T) {
	root := t.TempDir()
	name := qn("dbo", "usp_orders_list")

	first, err := Write(root, catalog.StoredProcedure, '_', name, "v1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := Write(root, catalog.StoredProcedure, '_', name, "v2")
	if err != nil {
		t.Fatalf("second Write error: %v", err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	data, _ := os.ReadFile(second)
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}

	entries, err := os.ReadDir(filepath.Join(root, "StoredProcedures", "usp", "orders"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "list.sql" {
		t.Errorf("directory holds %v, want only list.sql", entries)
	}
}

func TestWrite_DirectoryBlockedByFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Views"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(root, catalog.View, '_', qn("dbo", "v"), "CREATE VIEW v"); err == nil {
		t.Error("Write should fail when the category folder is a file")
	}
}
