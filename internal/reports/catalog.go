package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mroshb/cockpit/internal/services"
	"github.com/xuri/excelize/v2"
)

// CatalogRow is one canteen item read from a catalog sheet:
// SKU, Name, Unit Price, Opening Qty.
type CatalogRow struct {
	Line      int
	SKU       string
	Name      string
	UnitPrice int64
	Qty       int64
}

// ReadCatalog reads the first sheet of a catalog workbook. The first row
// is a header. Rows that cannot be parsed are returned in skipped by line
// number and left out of rows.
func ReadCatalog(r io.Reader) (rows []CatalogRow, skipped []int, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("no sheets found")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}

	for i, cells := range all {
		if i == 0 {
			continue
		}
		line := i + 1
		row, ok := parseCatalogRow(line, cells)
		if !ok {
			skipped = append(skipped, line)
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func parseCatalogRow(line int, cells []string) (CatalogRow, bool) {
	if len(cells) < 3 {
		return CatalogRow{}, false
	}
	row := CatalogRow{Line: line, SKU: strings.TrimSpace(cells[0]), Name: strings.TrimSpace(cells[1])}
	if row.SKU == "" || row.Name == "" {
		return CatalogRow{}, false
	}
	price, err := strconv.ParseInt(strings.TrimSpace(cells[2]), 10, 64)
	if err != nil || price < 0 {
		return CatalogRow{}, false
	}
	row.UnitPrice = price
	if len(cells) > 3 && strings.TrimSpace(cells[3]) != "" {
		qty, err := strconv.ParseInt(strings.TrimSpace(cells[3]), 10, 64)
		if err != nil || qty < 0 {
			return CatalogRow{}, false
		}
		row.Qty = qty
	}
	return row, true
}

// ApplyCatalog upserts every row and books its opening quantity as a
// stock IN, all in one unit of work.
func ApplyCatalog(ctx context.Context, ledger *services.Ledger, actor services.Actor, rows []CatalogRow) error {
	return ledger.Run(ctx, func(s *services.Services) error {
		for _, row := range rows {
			id, err := s.Canteen.UpsertItem(actor, row.SKU, row.Name, row.UnitPrice)
			if err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			if row.Qty == 0 {
				continue
			}
			if err := s.Canteen.StockIn(actor, actor.UserID, id, row.Qty, nil, "catalog import"); err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
		}
		return nil
	})
}
