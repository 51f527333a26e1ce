// Package xl writes new workbooks from scratch. It is the bulk counterpart
// of package patch: everything is built in memory and serialized in one
// pass through a Writer.
package xl

import (
	"strings"
	"time"

	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/xlerr"
)

// Workbook is the in-memory model that a Writer serializes.
type Workbook struct {
	AppName  string
	Date1904 bool
	Created  time.Time // zero means the time of writing
	Sheets   []*Sheet

	sheetMap map[string]*Sheet // keyed by lower-cased name
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{
		sheetMap: map[string]*Sheet{},
	}
}

// AddSheet appends a sheet. Names follow the application rules and must be
// unique without regard to case.
func (wb *Workbook) AddSheet(name string) (*Sheet, error) {
	if err := part.ValidateSheetName(name); err != nil {
		return nil, err
	}
	key := strings.ToLower(name)
	if _, exists := wb.sheetMap[key]; exists {
		return nil, xlerr.New(xlerr.KindInvalidEdit, "duplicate sheet name %q", name)
	}

	sheet := &Sheet{
		workbook:      wb,
		Name:          name,
		Columns:       map[int]*Column{},
		nextRowNumber: 1,
	}

	wb.Sheets = append(wb.Sheets, sheet)
	wb.sheetMap[key] = sheet

	return sheet, nil
}

// Sheet looks a sheet up by name.
func (wb *Workbook) Sheet(name string) (*Sheet, bool) {
	sh, ok := wb.sheetMap[strings.ToLower(name)]
	return sh, ok
}
