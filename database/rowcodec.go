package database

import (
	"fmt"
	"strconv"
	"strings"
)

// On-disk row framing. Each record is one newline-terminated text line whose
// first byte is the status marker, followed by the column values joined by
// the delimiter:
//
//	' 1|Dune\n'   valid row
//	'#1|Dune\n'   deleted row
//
// Values are sanitized on write so that no value can break line framing.
const (
	ValidMarker   byte = ' '
	DeletedMarker byte = '#'
	Delimiter     byte = '|'
)

// sanitizer replaces every byte that is meaningful to the row framing.
// The substitution is lossy and not reversed on read.
var sanitizer = strings.NewReplacer(
	string(Delimiter), "_",
	"\n", "_",
	string(DeletedMarker), "_",
)

// EncodeRow renders values as one valid-marked record line.
func EncodeRow(values []string) []byte {
	var b strings.Builder
	b.WriteByte(ValidMarker)
	for i, v := range values {
		if i > 0 {
			b.WriteByte(Delimiter)
		}
		b.WriteString(sanitizer.Replace(v))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// DecodeRow parses one record line. deleted reports a row carrying the
// deleted marker; its values are not returned. A marker that is neither
// valid nor deleted, or a value count that disagrees with columnCount, is a
// corruption condition.
func DecodeRow(line []byte, columnCount int) (values []string, deleted bool, err error) {
	if len(line) == 0 {
		return nil, false, fmt.Errorf("empty record line: %w", ErrCorruptRow)
	}
	switch line[0] {
	case DeletedMarker:
		return nil, true, nil
	case ValidMarker:
	default:
		return nil, false, fmt.Errorf("invalid marker byte %q: %w", line[0], ErrCorruptRow)
	}

	body := string(line[1:])
	body = strings.TrimSuffix(body, "\n")
	values = strings.Split(body, string(Delimiter))
	if len(values) != columnCount {
		return nil, false, fmt.Errorf("row has %d columns, expected %d: %w", len(values), columnCount, ErrCorruptRow)
	}
	return values, false, nil
}

// rowPrimaryKey extracts the integer primary key (first column) from an
// encoded record line. Used while re-indexing during compaction.
func rowPrimaryKey(line []byte) (int, error) {
	if len(line) < 2 {
		return 0, fmt.Errorf("record line too short to hold a primary key")
	}
	body := line[1:]
	end := 0
	for end < len(body) && body[end] != Delimiter && body[end] != '\n' {
		end++
	}
	pk, err := strconv.Atoi(string(body[:end]))
	if err != nil {
		return 0, fmt.Errorf("primary key column %q is not an integer: %v", body[:end], err)
	}
	return pk, nil
}
