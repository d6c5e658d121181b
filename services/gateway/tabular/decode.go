// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tabular decodes uploaded spreadsheets (CSV, XLS/XLSX) into a
// row-oriented structure for preview and template validation. This is the
// only in-process file parsing in the gateway; everything analytical is
// delegated to the engine.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/firedeckhq/firedeck/pkg/validation"
)

// Tabular MIME types accepted on upload. They admit files whose names
// carry no recognized extension; Decode sniffs those to pick a codec.
var tabularMIMETypes = map[string]bool{
	"text/csv":        true,
	"application/csv": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// Table is a decoded sheet: ordered column names and one string map per
// data row. Cells absent from a ragged row are present as "".
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// Sample returns up to n leading rows. The slice aliases the table.
func (t *Table) Sample(n int) []map[string]string {
	if len(t.Rows) < n {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// Supported reports whether an upload looks tabular, by extension first
// and declared Content-Type second.
func Supported(filename, contentType string) bool {
	if validation.HasExtension(filename, ".csv", ".xls", ".xlsx") {
		return true
	}
	if i := strings.Index(contentType, ";"); i != -1 {
		contentType = contentType[:i]
	}
	return tabularMIMETypes[strings.TrimSpace(strings.ToLower(contentType))]
}

// Decode reads the file at path into a Table, dispatching on extension.
// A file Supported accepted on Content-Type alone carries no recognized
// extension, so its container is sniffed: XLSX workbooks are zip
// archives, anything else decodes as CSV. A header-only or empty file
// decodes to zero rows, not an error.
func Decode(path string) (*Table, error) {
	switch {
	case validation.HasExtension(path, ".csv"):
		return decodeCSVFile(path)
	case validation.HasExtension(path, ".xls", ".xlsx"):
		return decodeExcel(path)
	case hasZipHeader(path):
		return decodeExcel(path)
	default:
		return decodeCSVFile(path)
	}
}

func decodeCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	return decodeCSV(f)
}

// hasZipHeader reports whether the file starts with the zip magic bytes,
// which is how XLSX workbooks are packaged.
func hasZipHeader(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}
	return magic[0] == 'P' && magic[1] == 'K'
}

// decodeCSV reads a header row and then maps every record onto it.
// Ragged records are tolerated: short rows pad with "", long rows drop
// the extra cells.
func decodeCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: columns}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(table.Rows)+2, err)
		}
		table.Rows = append(table.Rows, rowFromRecord(columns, record))
	}
	return table, nil
}

// decodeExcel reads the first sheet of an XLS/XLSX workbook.
func decodeExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	columns := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: columns}
	for _, record := range rows[1:] {
		table.Rows = append(table.Rows, rowFromRecord(columns, record))
	}
	return table, nil
}

func rowFromRecord(columns, record []string) map[string]string {
	row := make(map[string]string, len(columns))
	for i, col := range columns {
		if i < len(record) {
			row[col] = strings.TrimSpace(record[i])
		} else {
			row[col] = ""
		}
	}
	return row
}
