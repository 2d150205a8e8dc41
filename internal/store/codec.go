package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/roach88/propmap/internal/textnorm"
)

// Row is one table row, fields in column order.
type Row []string

func (r Row) clone() Row {
	return append(Row(nil), r...)
}

// encodeTable renders a table file: header first, fields separated by the
// reserved delimiter, every row CRLF-terminated.
func encodeTable(t Table, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = textnorm.Delimiter
	w.UseCRLF = true

	if err := w.Write(t.Columns()); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", t.File(), err)
	}
	return buf.Bytes(), nil
}

// decodeTable parses a table file and validates it against the table schema:
// exact header, fixed field count, integer id columns, numeric weights.
func decodeTable(t Table, data []byte) ([]Row, error) {
	spec := tableSpecs[t]

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = textnorm.Delimiter
	r.FieldsPerRecord = len(spec.columns)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{File: spec.file, Line: 1, Reason: "missing header"}
	}
	if err != nil {
		return nil, parseError(spec.file, err)
	}
	if !slices.Equal(header, spec.columns) {
		return nil, &SchemaError{
			File:   spec.file,
			Line:   1,
			Reason: fmt.Sprintf("header %v does not match %v", header, spec.columns),
		}
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(spec.file, err)
		}
		line, _ := r.FieldPos(0)
		if err := validateRow(spec, rec, line); err != nil {
			return nil, err
		}
		rows = append(rows, Row(rec))
	}
	return rows, nil
}

func validateRow(spec tableSpec, rec []string, line int) error {
	for _, i := range spec.intColumns {
		n, err := strconv.Atoi(rec[i])
		if err != nil || n < 0 {
			return &SchemaError{
				File:   spec.file,
				Line:   line,
				Reason: fmt.Sprintf("column %s: %q is not a non-negative integer", spec.columns[i], rec[i]),
			}
		}
	}
	for _, i := range spec.numColumns {
		if !isNumber(rec[i]) {
			return &SchemaError{
				File:   spec.file,
				Line:   line,
				Reason: fmt.Sprintf("column %s: %q is not a number", spec.columns[i], rec[i]),
			}
		}
	}
	return nil
}

// isNumber reports whether s parses as a finite number.
func isNumber(s string) bool {
	n, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(n) && !math.IsInf(n, 0)
}

func parseError(file string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &SchemaError{File: file, Line: pe.Line, Reason: pe.Err.Error()}
	}
	return fmt.Errorf("read %s: %w", file, err)
}
