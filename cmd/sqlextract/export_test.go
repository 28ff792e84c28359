package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sadopc/sqlextract/internal/catalog"
)

var exportRows = []listRow{
	{catalog.StoredProcedure, catalog.QualifiedName{Schema: "dbo", Name: "usp_load, daily"}},
	{catalog.View, catalog.QualifiedName{Schema: "rpt", Name: "v_sales"}},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, exportRows); err != nil {
		t.Fatal(err)
	}
	want := "type,schema,name\nStoredProcedure,dbo,\"usp_load, daily\"\nView,rpt,v_sales\n"
	if buf.String() != want {
		t.Errorf("writeCSV() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, exportRows); err != nil {
		t.Fatal(err)
	}
	var got []listObject
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[1] != (listObject{Type: "View", Schema: "rpt", Name: "v_sales", Folder: "Views"}) {
		t.Errorf("writeJSON() = %+v", got)
	}

	buf.Reset()
	if err := writeJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("empty listing = %q, want []", buf.String())
	}
}

func TestCheckListFormat(t *testing.T) {
	for _, f := range listFormats {
		if err := checkListFormat(f); err != nil {
			t.Errorf("checkListFormat(%q) = %v", f, err)
		}
	}
	if err := checkListFormat("xml"); err == nil {
		t.Error("checkListFormat(xml) should fail")
	}
}

func TestList_JSON(t *testing.T) {
	isolate(t)
	dbPath := makeSQLiteDB(t)

	out, err := execute(t, "list", dbPath, "--plain", "-o", "json", "-t", "views")
	if err != nil {
		t.Fatalf("execute error = %v\n%s", err, out)
	}
	var got []listObject
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Name != "v_users_active" || got[0].Schema != "main" {
		t.Errorf("list = %+v", got)
	}
}
