package extract

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineLength bounds a single extracted line; table rows flattened by the
// page-text extractor can be long.
const maxLineLength = 1024 * 1024

// Line is one line of the extracted text together with its position.
type Line struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ReadLines reads newline-separated text, dropping line terminators.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return lines, nil
}

// SplitLines splits text into lines, accepting both \n and \r\n endings.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
