package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var listFormats = []string{"table", "plain", "csv", "json"}

func checkListFormat(format string) error {
	for _, f := range listFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (available: %s)", format, strings.Join(listFormats, ", "))
}

// writeCSV writes rows with a type,schema,name header.
func writeCSV(w io.Writer, rows []listRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"type", "schema", "name"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.category.String(), r.name.Schema, r.name.Name}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type listObject struct {
	Type   string `json:"type"`
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

// writeJSON writes rows as an indented JSON array. An empty listing is "[]".
func writeJSON(w io.Writer, rows []listRow) error {
	objects := make([]listObject, 0, len(rows))
	for _, r := range rows {
		objects = append(objects, listObject{
			Type:   r.category.String(),
			Schema: r.name.Schema,
			Name:   r.name.Name,
			Folder: r.category.Folder(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(objects)
}
