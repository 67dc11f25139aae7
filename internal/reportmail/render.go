package reportmail

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/busanokirby/jc-web-v2/internal/recon"
)

var printer = message.NewPrinter(language.English)

// Subject builds the email subject line for a summary window.
func Subject(freq Frequency, s recon.Summary) string {
	label := cases.Title(language.English).String(strings.ReplaceAll(string(freq), "_", " "))
	return fmt.Sprintf("%s Financial Report - %s to %s",
		label, s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
}

// RenderBody renders the summary as a plain-text report.
func RenderBody(s recon.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Financial summary %s to %s\n\n",
		s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))

	fmt.Fprintf(&b, "Revenue received (cash basis)\n")
	fmt.Fprintf(&b, "  Sales:    %s\n", s.Received.Sales.Format(printer))
	fmt.Fprintf(&b, "  Repairs:  %s\n", s.Received.Repairs.Format(printer))
	fmt.Fprintf(&b, "  Total:    %s over %d payments\n\n", s.Received.Total.Format(printer), s.Received.Count)

	fmt.Fprintf(&b, "Revenue invoiced (accrual basis)\n")
	fmt.Fprintf(&b, "  Sales:    %s\n", s.Invoiced.Sales.Format(printer))
	fmt.Fprintf(&b, "  Repairs:  %s\n", s.Invoiced.Repairs.Format(printer))
	fmt.Fprintf(&b, "  Total:    %s\n\n", s.Invoiced.Total.Format(printer))

	if len(s.Methods) > 0 {
		fmt.Fprintf(&b, "Payments by method\n")
		for _, m := range s.Methods {
			fmt.Fprintf(&b, "  %-10s %s (%d)\n", m.Method, m.Amount.Format(printer), m.Count)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Outstanding\n")
	fmt.Fprintf(&b, "  Pending sales:        %s\n", s.Outstanding.PendingSales.Format(printer))
	fmt.Fprintf(&b, "  Sales balance due:    %s\n", s.Outstanding.SalesBalanceDue.Format(printer))
	fmt.Fprintf(&b, "  Pending repairs:      %s\n", s.Outstanding.PendingRepairs.Format(printer))
	fmt.Fprintf(&b, "  Repairs balance due:  %s\n", s.Outstanding.RepairsBalanceDue.Format(printer))
	fmt.Fprintf(&b, "  Total:                %s\n\n", s.Outstanding.Total.Format(printer))

	b.WriteString("Received figures count only money actually collected. Waived repairs and voided sales are excluded.\n")
	return b.String()
}
