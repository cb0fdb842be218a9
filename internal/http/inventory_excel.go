package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"wisefido-asset/internal/domain"
)

const inventorySheet = "Inventory"

// InventoryExportHeader 资产清单导出表头
var InventoryExportHeader = []string{
	"Asset Code",
	"Name",
	"Category",
	"Ownership",
	"Status",
	"Location",
	"Manufacturer",
	"Serial Number",
	"Vendor",
	"Rental Rate",
	"Purchase Date",
	"Lifespan (months)",
	"Last Usage",
}

var inventoryColumnWidths = []float64{24, 30, 22, 12, 14, 16, 18, 20, 18, 12, 14, 16, 20}

// GenerateInventoryExport 生成资产清单 Excel 文件
func GenerateInventoryExport(assets []*domain.Asset) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(inventorySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range InventoryExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(inventorySheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(inventorySheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(inventorySheet, name, name, inventoryColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, a := range assets {
		row := i + 2 // 第1行是表头
		if err := f.SetSheetRow(inventorySheet, fmt.Sprintf("A%d", row), &[]interface{}{
			a.AssetCode,
			a.Name,
			a.Category,
			string(a.Ownership),
			string(a.Status),
			a.Location,
			a.Manufacturer,
			a.SerialNumber,
			derefString(a.Vendor),
			derefFloat(a.RentalRate),
			formatTime(a.PurchaseDate, "2006-01-02"),
			a.ExpectedLifespanMonths,
			formatTime(a.LastUsage, "2006-01-02 15:04:05"),
		}); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := f.SetPanes(inventorySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// derefFloat 空值写空单元格
func derefFloat(p *float64) interface{} {
	if p == nil {
		return ""
	}
	return *p
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
