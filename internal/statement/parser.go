// Package statement parses bank statement CSV exports into external
// transactions and filters transaction sets to the statement's date window.
package statement

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// RowError records a row the parser could not use. Parsing is partial:
// bad rows become RowErrors instead of failing the whole statement.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// FormatInfo describes what the parser detected about the file layout.
type FormatInfo struct {
	Delimiter string         `json:"delimiter"`
	HasHeader bool           `json:"has_header"`
	Columns   map[string]int `json:"columns"`
}

// ParseResult is the outcome of parsing one statement file.
type ParseResult struct {
	Transactions []txn.External `json:"transactions"`
	Errors       []RowError     `json:"errors,omitempty"`
	TotalRows    int            `json:"total_rows"`
	ValidRows    int            `json:"valid_rows"`
	Format       FormatInfo     `json:"format"`
}

// Default column order for headerless files.
var defaultColumns = map[string]int{"date": 0, "amount": 1, "payee": 2, "memo": 3}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02", "02 Jan 2006"}

// Parse reads a CSV statement. A header row is detected by looking for the
// date and amount column names; without one the columns are assumed to be
// date, amount, payee, memo. Rows that cannot be parsed are reported as
// RowErrors and skipped, so ValidRows <= TotalRows.
func Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	result := &ParseResult{
		Format: FormatInfo{Delimiter: ",", Columns: defaultColumns},
	}

	row := 0
	for {
		row++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.TotalRows++
			result.Errors = append(result.Errors, RowError{Row: row, Message: err.Error()})
			continue
		}

		if row == 1 {
			if cols, ok := headerColumns(record); ok {
				result.Format.HasHeader = true
				result.Format.Columns = cols
				continue
			}
		}

		result.TotalRows++
		ext, rowErr := parseRow(row, record, result.Format.Columns)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		result.Transactions = append(result.Transactions, ext)
		result.ValidRows++
	}

	return result, nil
}

// headerColumns maps known column names to indices when the record looks
// like a header row (it must name at least date and amount).
func headerColumns(record []string) (map[string]int, bool) {
	cols := make(map[string]int)
	for i, field := range record {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "date", "transaction date":
			cols["date"] = i
		case "amount", "value":
			cols["amount"] = i
		case "payee", "description", "merchant":
			cols["payee"] = i
		case "memo", "notes", "reference":
			cols["memo"] = i
		case "id", "transaction id":
			cols["id"] = i
		}
	}
	_, hasDate := cols["date"]
	_, hasAmount := cols["amount"]
	return cols, hasDate && hasAmount
}

func parseRow(row int, record []string, cols map[string]int) (txn.External, *RowError) {
	dateStr, ok := field(record, cols, "date")
	if !ok {
		return txn.External{}, &RowError{Row: row, Message: "missing date column"}
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return txn.External{}, &RowError{Row: row, Message: fmt.Sprintf("invalid date %q", dateStr)}
	}

	amountStr, ok := field(record, cols, "amount")
	if !ok {
		return txn.External{}, &RowError{Row: row, Message: "missing amount column"}
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return txn.External{}, &RowError{Row: row, Message: fmt.Sprintf("invalid amount %q", amountStr)}
	}

	payee, _ := field(record, cols, "payee")
	memo, _ := field(record, cols, "memo")

	id, ok := field(record, cols, "id")
	if !ok || id == "" {
		id = fmt.Sprintf("row-%d", row)
	}

	return txn.External{
		ID:        id,
		Date:      date,
		Amount:    amount,
		Payee:     payee,
		Memo:      memo,
		SourceRow: row,
	}, nil
}

func field(record []string, cols map[string]int, name string) (string, bool) {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[idx]), true
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// parseAmount accepts plain decimals plus common statement decorations:
// currency symbols, thousands separators, and parentheses for debits.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
