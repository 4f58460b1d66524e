package output

import (
	"strings"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/xuri/excelize/v2"
)

// SummarySheet is the sheet name used for the XLSX history summary.
const SummarySheet = "sensorinfo"

// SummaryColumns are the columns of the sensor history summary table.
var SummaryColumns = []string{
	"PARAM",
	"SENSOR_ID",
	"INSTRUMENT_PROD",
	"INSTRUMENT_MOD",
	"VALIDFR",
	"VALIDTO",
	"CALIB_DATE",
}

// SummaryRows renders history records as table rows matching SummaryColumns.
func SummaryRows(records []models.HistoryRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		var prod, mod string
		if rec.Reference != nil {
			prod = rec.Reference.InstrumentProd
			mod = rec.Reference.InstrumentMod
		}
		rows = append(rows, []string{
			rec.Param,
			rec.SerialNumber,
			prod,
			mod,
			rec.ValidFrom.Format("2006-01-02"),
			rec.ValidTo.Format("2006-01-02"),
			strings.Join(rec.CalibrationDates, ", "),
		})
	}
	return rows
}

// SummaryToTSV renders the history summary as tab-separated text.
func SummaryToTSV(records []models.HistoryRecord) []byte {
	lines := []string{strings.Join(SummaryColumns, "\t")}
	for _, row := range SummaryRows(records) {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return []byte(strings.Join(lines, "\n"))
}

// WriteSummaryTSV writes the history summary as a tab-separated file.
func WriteSummaryTSV(path string, records []models.HistoryRecord, overwrite bool) error {
	return WriteFile(path, SummaryToTSV(records), overwrite)
}

// WriteSummaryXLSX writes the history summary as a workbook with one sheet.
func WriteSummaryXLSX(path string, records []models.HistoryRecord, overwrite bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return err
	}

	header := make([]interface{}, len(SummaryColumns))
	for i, col := range SummaryColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range SummaryRows(records) {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &cells); err != nil {
			return err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	return WriteFile(path, buf.Bytes(), overwrite)
}
