package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// WriteServiceReportPDF renders the customer-facing service report.
func WriteServiceReportPDF(w io.Writer, r ServiceTechReport, zone *time.Location) error {
	if zone == nil {
		zone = time.UTC
	}
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Pool Service Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	line := func(format string, args ...any) {
		pdf.Cell(0, 7, fmt.Sprintf(format, args...))
		pdf.Ln(6)
	}
	line("Location: %s", r.LocationName)
	line("Technician: %s", r.EmployeeName)
	line("Service date: %s", r.ServiceDate.In(zone).Format("Jan 2, 2006 3:04 PM"))
	line("Checklist completion: %d%%", r.CompletionPercentage())
	pdf.Ln(4)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
	}

	section("Tasks")
	for _, task := range []struct {
		label string
		done  string
	}{
		{"Pool vacuumed", yesNo(r.PoolVacuumed)},
		{"Pool brushed", yesNo(r.PoolBrushed)},
		{"Skimmers emptied", yesNo(r.SkimmersEmpty)},
		{"Tiles cleaned", yesNo(r.TilesCleaned)},
		{"Furniture arranged", yesNo(r.FurnitureArranged)},
		{"Strainer cleaned", yesNo(r.CleanedStrainer)},
		{"Filters backwashed", yesNo(r.BackwashFilters)},
		{"Cartridges cleaned", triLabel(r.CleanedCartridges)},
		{"Trash emptied", yesNo(r.EmptyTrash)},
		{"Deck broomed and hosed", yesNo(r.BroomBucketHoseDeck)},
		{"Furniture organized", yesNo(r.FurnitureOrganized)},
		{"Water surface skimmed", yesNo(r.SkimWaterSurface)},
		{"Chemical controller calibrated", yesNo(r.CalibratedChemicalController)},
	} {
		pdf.CellFormat(90, 6, task.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, task.done, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section("Equipment")
	line("Flowrate: %s gpm   Filter pressure: %s psi   Water temp: %s F",
		r.Flowrate.String(), r.FilterPressure.String(), r.WaterTemp.String())
	line("Controller ORP: %s   Controller pH: %s", r.ControllerORP.String(), r.ControllerPH.String())
	pdf.Ln(4)

	if len(r.Readings) > 0 {
		section("Chemical readings")
		headers := []string{"Body of water", "Cl/Br", "pH", "CH", "TA", "CYA", "Salt", "Phos"}
		widths := []float64{40, 20, 18, 20, 20, 20, 22, 20}
		pdf.SetFont("Helvetica", "B", 10)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
		for _, c := range r.Readings {
			values := []string{c.BodyOfWater, opt(c.ChlorineBromine), opt(c.PH), opt(c.CalciumHardness),
				opt(c.TotalAlkalinity), opt(c.CyanuricAcid), opt(c.Salt), opt(c.Phosphates)}
			for i, v := range values {
				pdf.CellFormat(widths[i], 7, v, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	if r.Notes != "" {
		section("Notes")
		pdf.MultiCell(0, 6, r.Notes, "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render service report: %w", err)
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func triLabel(t TriState) string {
	switch t {
	case TriTrue:
		return "Yes"
	case TriNotApplicable:
		return "N/A"
	default:
		return "No"
	}
}

func opt(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
