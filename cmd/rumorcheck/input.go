package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"disaster-relief/backend/internal/rumor"
)

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

// readInputFile loads requests from path. Files ending in .csv are read as
// message[,context,source] rows; anything else is one message per line.
func readInputFile(path string) ([]rumor.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		reqs, err := readCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return reqs, nil
	}
	return readLines(f)
}

func readLines(r io.Reader) ([]rumor.Request, error) {
	var reqs []rumor.Request
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reqs = append(reqs, rumor.Request{Message: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

// readCSV skips an optional header row whose first cell is "message".
func readCSV(r io.Reader) ([]rumor.Request, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var reqs []rumor.Request
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > 3 {
			return nil, fmt.Errorf("row %d: expected at most 3 columns, got %d", row+1, len(record))
		}
		if row == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "message") {
			continue
		}
		req := rumor.Request{Message: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			req.Context = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			req.Source = strings.TrimSpace(record[2])
		}
		if req.Message == "" {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
