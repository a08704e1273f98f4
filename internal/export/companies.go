package export

import (
	"context"
	"fmt"
	"io"

	"smart2onyma/internal/models"

	"github.com/xuri/excelize/v2"
)

var baseCompanyHeaders = []string{"Company ID", "Accounts", "Company Name"}

// ListBaseCompanies loads base companies with their account counts
func (e *CatalogExporter) ListBaseCompanies(ctx context.Context) ([]models.BaseCompany, error) {
	companies, err := e.src.ListBaseCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load base companies: %w", err)
	}
	return companies, nil
}

// WriteBaseCompanies prints the companies as a text table
func WriteBaseCompanies(w io.Writer, companies []models.BaseCompany) error {
	if _, err := fmt.Fprintf(w, "%-10s %-10s %s\n", baseCompanyHeaders[0], baseCompanyHeaders[1], baseCompanyHeaders[2]); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-10s %-10s %s\n", "----------", "--------", "------------"); err != nil {
		return err
	}
	for _, c := range companies {
		if _, err := fmt.Fprintf(w, "%-10d %-10d %s\n", c.BaseCompanyID, c.Cnt, c.Name); err != nil {
			return err
		}
	}
	return nil
}

// WriteBaseCompaniesXLSX saves the companies table as a spreadsheet
func WriteBaseCompaniesXLSX(path string, companies []models.BaseCompany) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Base Companies"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range baseCompanyHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "B", 14); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "C", "C", 48); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, c := range companies {
		row := i + 2
		for col, value := range []interface{}{c.BaseCompanyID, c.Cnt, c.Name} {
			if err := setCellValue(f, sheetName, col+1, row, value); err != nil {
				return fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
