package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadSiteNameMap reads a previously written connections list into sitename -> usrconnid.
// The header row is optional. Later rows win over earlier ones.
func ReadSiteNameMap(path, format string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	result, err := ParseSiteNameMap(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

// ParseSiteNameMap parses connections list rows written in format
func ParseSiteNameMap(r io.Reader, format string) (map[string]int64, error) {
	fields := strings.Split(format, Delimiter)
	siteIdx, idIdx := -1, -1
	for i, name := range fields {
		switch name {
		case "SITENAME":
			siteIdx = i
		case "USRCONNID":
			idIdx = i
		}
	}
	if siteIdx < 0 || idIdx < 0 {
		return nil, fmt.Errorf("format %q has no SITENAME or USRCONNID", format)
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	result := make(map[string]int64)
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) <= siteIdx || len(record) <= idIdx {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(fields), len(record))
		}
		if line == 1 && record[idIdx] == "USRCONNID" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(record[idIdx]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad USRCONNID %q: %w", line, record[idIdx], err)
		}
		result[record[siteIdx]] = id
	}
	return result, nil
}
