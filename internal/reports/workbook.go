// Package reports exports the report projections to xlsx workbooks.
package reports

import (
	"fmt"
	"io"

	"github.com/mroshb/cockpit/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// Sheet names in workbook order
const (
	SheetDailyIncome  = "Daily Income"
	SheetCashiers     = "Cashiers"
	SheetCanteen      = "Canteen Sellers"
	SheetFightHistory = "Fight History"
)

// Data holds every report exported to one workbook.
type Data struct {
	DailyIncome  []repositories.DailyIncome
	Cashiers     []repositories.CashierPerformance
	Sellers      []repositories.CanteenSeller
	FightHistory []repositories.FightHistory
}

// Collect runs every report query with its default limit.
func Collect(repo *repositories.ReportRepository) (*Data, error) {
	var (
		data Data
		err  error
	)
	if data.DailyIncome, err = repo.DailyIncome(0); err != nil {
		return nil, err
	}
	if data.Cashiers, err = repo.CashierPerformance(0); err != nil {
		return nil, err
	}
	if data.Sellers, err = repo.CanteenSellers(0); err != nil {
		return nil, err
	}
	if data.FightHistory, err = repo.FightHistory(0); err != nil {
		return nil, err
	}
	return &data, nil
}

type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

func sheets(data *Data) []sheet {
	daily := sheet{name: SheetDailyIncome, header: []interface{}{"Day", "Bet In", "Bet Payouts", "Bet Net", "Canteen Sales"}}
	for _, r := range data.DailyIncome {
		daily.rows = append(daily.rows, []interface{}{r.Day, r.BetIn, r.BetPayouts, r.BetNet, r.CanteenSales})
	}

	cashiers := sheet{name: SheetCashiers, header: []interface{}{"Cashier", "Bets", "Bet In", "Payouts"}}
	for _, r := range data.Cashiers {
		cashiers.rows = append(cashiers.rows, []interface{}{r.Cashier, r.BetsCount, r.BetIn, r.Payouts})
	}

	sellers := sheet{name: SheetCanteen, header: []interface{}{"Seller", "Sales", "Total"}}
	for _, r := range data.Sellers {
		sellers.rows = append(sellers.rows, []interface{}{r.Seller, r.SalesCount, r.SalesTotal})
	}

	fights := sheet{name: SheetFightHistory, header: []interface{}{"Match", "Fight #", "State", "Result", "Decided At"}}
	for _, r := range data.FightHistory {
		var fightNumber interface{}
		if r.FightNumber != nil {
			fightNumber = *r.FightNumber
		}
		fights.rows = append(fights.rows, []interface{}{r.MatchNumber, fightNumber, r.State, r.Result, r.DecidedAt})
	}

	return []sheet{daily, cashiers, sellers, fights}
}

// Build lays out one sheet per report, each with a header row. The caller
// closes the returned file.
func Build(data *Data) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, sh := range sheets(data) {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			f.Close()
			return nil, err
		}

		if err := f.SetSheetRow(sh.name, "A1", &sh.header); err != nil {
			f.Close()
			return nil, err
		}
		for n, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, n+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			row := row
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write %s row %d: %w", sh.name, n+1, err)
			}
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func WriteWorkbook(w io.Writer, data *Data) error {
	f, err := Build(data)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func SaveWorkbook(path string, data *Data) error {
	f, err := Build(data)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}
