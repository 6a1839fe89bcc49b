package source

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nvictus/bigtools/internal/bbierr"
)

// Text implements Source over whitespace-delimited lines (bedGraph/BED
// style): the first field is the chromosome, the second and third parse
// as unsigned 32-bit start/end, and any remaining fields are rejoined
// with single tab separators into Rest. Malformed numeric fields are a
// fatal parse error.
//
// Text is deliberately minimal: it satisfies the tuple contract Source
// requires via bufio.Scanner line buffering and whitespace splitting,
// not a full BED/bedGraph grammar.
type Text struct {
	sc   *bufio.Scanner
	line int
}

// NewText wraps r as a Source, skipping blank lines.
func NewText(r io.Reader) *Text {
	return &Text{sc: bufio.NewScanner(r)}
}

func (t *Text) Next() (Record, bool, error) {
	for t.sc.Scan() {
		t.line++
		line := strings.TrimRight(t.sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return Record{}, false, fmt.Errorf("source: line %d: expected at least 3 whitespace-separated fields, got %d", t.line, len(fields))
		}
		start, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Record{}, false, bbierr.Newf("source: line %d: malformed start %q: %v", t.line, fields[1], err)
		}
		end, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return Record{}, false, bbierr.Newf("source: line %d: malformed end %q: %v", t.line, fields[2], err)
		}
		rest := strings.Join(fields[3:], "\t")
		return Record{Chrom: fields[0], Start: uint32(start), End: uint32(end), Rest: rest}, true, nil
	}
	if err := t.sc.Err(); err != nil {
		return Record{}, false, fmt.Errorf("source: scan: %w", err)
	}
	return Record{}, false, nil
}
