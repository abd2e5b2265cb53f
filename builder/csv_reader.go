package builder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

const csvReadBufferSize = 1024 * 1024

// csvReader is a wrapper over csv.Reader which gives access to row
// values by column name.
type csvReader struct {
	path    string
	fp      afero.File
	reader  *csv.Reader
	columns map[string]int
	row     []string
	pending bool
}

func (c *csvReader) Next() error {
	if c.pending {
		c.pending = false

		return nil
	}

	row, err := c.reader.Read()

	switch {
	case err == io.EOF:
		return io.EOF
	case err != nil:
		return fmt.Errorf("cannot read %s: %w", c.path, err)
	}

	c.row = row

	return nil
}

func (c *csvReader) Get(column string) string {
	idx, ok := c.columns[column]
	if !ok || idx >= len(c.row) {
		return ""
	}

	return strings.TrimSpace(c.row[idx])
}

// Line returns a line number of the current row.
func (c *csvReader) Line() int {
	line, _ := c.reader.FieldPos(0)

	return line
}

func (c *csvReader) Close() error {
	return c.fp.Close()
}

// openCSV opens a CSV file and reads its header. If the file has no
// header with required columns and positional column names are given,
// the first row is treated as data and columns are taken by position.
func openCSV(fs afero.Fs, path string, required, positional []string) (*csvReader, error) {
	fp, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}

	reader := csv.NewReader(bufio.NewReaderSize(fp, csvReadBufferSize))
	reader.ReuseRecord = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	rv := &csvReader{
		path:    path,
		fp:      fp,
		reader:  reader,
		columns: map[string]int{},
	}

	header, err := reader.Read()
	if err != nil {
		fp.Close()

		if err == io.EOF {
			return nil, fmt.Errorf("%s is empty: %w", path, io.ErrUnexpectedEOF)
		}

		return nil, fmt.Errorf("cannot read a header of %s: %w", path, err)
	}

	for i, v := range header {
		rv.columns[strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))] = i
	}

	for _, v := range required {
		if _, ok := rv.columns[v]; ok {
			continue
		}

		if len(positional) == 0 {
			fp.Close()

			return nil, fmt.Errorf("%s has no column %s: %w", path, v, ErrMissingColumn)
		}

		rv.columns = map[string]int{}
		rv.row = header
		rv.pending = true

		for i, name := range positional {
			rv.columns[name] = i
		}

		break
	}

	return rv, nil
}
