// Package store persists catalog records as JSON documents or SQLite runs.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/coolbeans/modcat/pkg/catalog"
)

// WriteJSON writes records as an indented JSON array. Non-ASCII text and
// characters such as "<" and "&" are written as-is.
func WriteJSON(w io.Writer, records []catalog.Record) error {
	if records == nil {
		records = []catalog.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

// ReadJSON reads a JSON array of records as written by WriteJSON.
func ReadJSON(r io.Reader) ([]catalog.Record, error) {
	var records []catalog.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// WriteJSONFile writes records to path, replacing any existing file.
func WriteJSONFile(path string, records []catalog.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteJSON(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadJSONFile reads the records stored at path.
func ReadJSONFile(path string) ([]catalog.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records: %w", err)
	}
	defer file.Close()
	return ReadJSON(file)
}
