package demographics

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var reportHeader = []string{
	"Object ID", "Blocks", "Blocks >50%",
	"Population (all)", "Population (>50%)", "Population (weighted)",
	"Housing (all)", "Housing (>50%)", "Housing (weighted)",
	"Area (sq mi)", "Warnings",
}

// WriteReport writes area summaries to an XLSX workbook so all three
// method totals can be compared side by side.
func WriteReport(path string, summaries []AreaSummary) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Demographics")
	if err != nil {
		return eris.Wrap(err, "demographics: add report sheet")
	}

	header := sheet.AddRow()
	for _, h := range reportHeader {
		header.AddCell().SetString(h)
	}

	p := message.NewPrinter(language.AmericanEnglish)
	for _, s := range summaries {
		row := sheet.AddRow()
		row.AddCell().SetInt64(s.ObjectID)
		row.AddCell().SetInt(s.Blocks)
		row.AddCell().SetInt(s.BlocksMajority)
		row.AddCell().SetString(p.Sprintf("%d", s.PopulationAll))
		row.AddCell().SetString(p.Sprintf("%d", s.PopulationMajority))
		row.AddCell().SetString(p.Sprintf("%d", s.PopulationWeighted))
		row.AddCell().SetString(p.Sprintf("%d", s.HousingAll))
		row.AddCell().SetString(p.Sprintf("%d", s.HousingMajority))
		row.AddCell().SetString(p.Sprintf("%d", s.HousingWeighted))
		row.AddCell().SetFloatWithFormat(s.AreaSqMi, "0.00")
		row.AddCell().SetString(strings.Join(s.Warnings, "; "))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "demographics: save report")
	}
	return nil
}
