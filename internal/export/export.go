// Package export формирует табличные выгрузки заказов в CSV и XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/acquisitions/internal/model"
)

const sheetName = "Sheet1"

// Header содержит заголовки столбцов выгрузки.
var Header = []string{
	"order_id",
	"order_reference",
	"vendor",
	"document",
	"account",
	"ordered_quantity",
	"ordered_amount",
	"received_quantity",
	"received_amount",
	"receipt_date",
}

func cells(row model.ExportRow, precision int32) []string {
	received, amount, date := "", "", ""
	if row.ReceiptDate != nil {
		received = strconv.FormatInt(row.ReceivedQuantity, 10)
		amount = row.ReceivedAmount.StringFixed(precision)
		date = row.ReceiptDate.Format(time.DateOnly)
	}
	return []string{
		row.OrderID,
		row.OrderReference,
		row.VendorName,
		row.DocumentTitle,
		row.AccountName,
		strconv.FormatInt(row.OrderedQuantity, 10),
		row.OrderedAmount.StringFixed(precision),
		received,
		amount,
		date,
	}
}

// WriteCSV пишет строки выгрузки в w с заголовком.
func WriteCSV(w io.Writer, rows []model.ExportRow, precision int32) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(cells(row, precision)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX пишет строки выгрузки в книгу Excel с одним листом.
func WriteXLSX(w io.Writer, rows []model.ExportRow, precision int32) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, cells(row, precision)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNo int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNo)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
	}
	return nil
}
