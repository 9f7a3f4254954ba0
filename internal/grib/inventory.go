package grib

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// InventoryItem is one record from a wgrib2 "short" inventory line, e.g.
//
//	580:447039550:d=2023102706:TMP:2 m above ground:12 hour fcst:
//
// Fields are record number, byte offset, reference time, variable
// abbreviation, level description, and forecast description.
type InventoryItem struct {
	Record   int
	Offset   int64
	RefTime  string
	Var      string
	Level    string
	Forecast string
}

// Inventory is the ordered record list of one grid file.
type Inventory []InventoryItem

// ParseInventory reads a wgrib2 short inventory from stream. Lines with too
// few fields are rejected; sub-record numbers ("580.1") keep the integer part.
func ParseInventory(stream io.Reader) (Inventory, error) {
	var inventory Inventory

	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, ":", 6)
		if len(fields) < 6 {
			return nil, fmt.Errorf("inventory record has too few fields: %q", line)
		}

		// N-d records (wind vectors) carry a ".<sub>" suffix on the record
		// number. The integer part identifies the record for -d extraction.
		record, err := strconv.Atoi(strings.SplitN(fields[0], ".", 2)[0])
		if err != nil {
			return nil, fmt.Errorf("invalid record number %q: %w", fields[0], err)
		}

		offset, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record offset %q: %w", fields[1], err)
		}

		inventory = append(inventory, InventoryItem{
			Record:   record,
			Offset:   offset,
			RefTime:  strings.TrimPrefix(fields[2], "d="),
			Var:      fields[3],
			Level:    fields[4],
			Forecast: strings.TrimSuffix(fields[5], ":"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return inventory, nil
}

// wgrib2Selector maps a canonical field name to the wgrib2 inventory
// vocabulary: the variable abbreviation and, for fields whose name alone
// identifies the level, the fixed level description.
type wgrib2Selector struct {
	abbrev     string
	fixedLevel string // empty when the predicate supplies a numeric level
}

// selectors translates the canonical field names used by predicates into
// wgrib2 inventory terms.
var selectors = map[string]wgrib2Selector{
	"2 metre temperature": {abbrev: "TMP", fixedLevel: "2 m above ground"},
	"Surface pressure":    {abbrev: "PRES", fixedLevel: "surface"},
	"Geopotential height": {abbrev: "HGT"},
}

// Matches reports whether this inventory record satisfies the predicate.
func (item InventoryItem) Matches(pred Predicate) bool {
	sel, ok := selectors[pred.Name]
	if !ok || item.Var != sel.abbrev {
		return false
	}
	if sel.fixedLevel != "" {
		return item.Level == sel.fixedLevel
	}
	if pred.Level <= 0 {
		return false
	}
	return item.Level == fmt.Sprintf("%d mb", pred.Level)
}
