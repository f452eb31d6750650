package digest

import (
	"fmt"
	"html"
	"strings"

	"testimony-digest/internal/domain"
)

// Subject формирует тему письма с дайджестом.
func Subject(d domain.DigestResult) string {
	return fmt.Sprintf("New testimony digest — %s", d.EndDate.Format("January 2, 2006"))
}

// FormatHTML формирует HTML-тело письма. Для одного и того же DigestResult
// результат всегда байтово одинаковый.
func FormatHTML(d domain.DigestResult) string {
	var b strings.Builder
	b.WriteString("<h2>New testimony on your bills</h2>\n")
	b.WriteString(fmt.Sprintf("<p>Activity from %s to %s.</p>\n", d.StartDate.Format("Jan 2, 2006"), d.EndDate.Format("Jan 2, 2006")))

	if len(d.Bills) > 0 {
		b.WriteString("<h3>Bills you follow</h3>\n<ul>\n")
		for _, bill := range d.Bills {
			b.WriteString(fmt.Sprintf(
				"<li><b>%s</b> (%s) — %d endorse / %d neutral / %d oppose</li>\n",
				escapeHTML(bill.BillName), escapeHTML(bill.Court),
				bill.EndorseCount, bill.NeutralCount, bill.OpposeCount,
			))
		}
		b.WriteString("</ul>\n")
		if rest := d.NumBillsWithNewTestimony - len(d.Bills); rest > 0 {
			b.WriteString(fmt.Sprintf("<p>…and %d more %s with new testimony.</p>\n", rest, plural(rest, "bill", "bills")))
		}
	}

	if len(d.Users) > 0 {
		b.WriteString("<h3>People you follow</h3>\n<ul>\n")
		for _, user := range d.Users {
			b.WriteString(fmt.Sprintf(
				"<li><b>%s</b> — %d new %s\n<ul>\n",
				escapeHTML(user.UserName), user.NewTestimonyCount,
				plural(user.NewTestimonyCount, "testimony", "testimonies"),
			))
			for _, bill := range user.Bills {
				b.WriteString(fmt.Sprintf("<li>%s (%s): %s</li>\n", escapeHTML(bill.BillID), escapeHTML(bill.Court), escapeHTML(string(bill.Position))))
			}
			b.WriteString("</ul>\n</li>\n")
		}
		b.WriteString("</ul>\n")
		if rest := d.NumUsersWithNewTestimony - len(d.Users); rest > 0 {
			b.WriteString(fmt.Sprintf("<p>…and %d more %s with new testimony.</p>\n", rest, plural(rest, "person", "people")))
		}
	}

	return strings.TrimSpace(b.String())
}

// FormatText формирует текстовую версию письма.
func FormatText(d domain.DigestResult) string {
	var b strings.Builder
	b.WriteString("New testimony on your bills\n")
	b.WriteString(fmt.Sprintf("Activity from %s to %s.\n", d.StartDate.Format("Jan 2, 2006"), d.EndDate.Format("Jan 2, 2006")))

	if len(d.Bills) > 0 {
		b.WriteString("\nBills you follow:\n")
		for _, bill := range d.Bills {
			b.WriteString(fmt.Sprintf(
				"- %s (%s): %d endorse / %d neutral / %d oppose\n",
				bill.BillName, bill.Court, bill.EndorseCount, bill.NeutralCount, bill.OpposeCount,
			))
		}
		if rest := d.NumBillsWithNewTestimony - len(d.Bills); rest > 0 {
			b.WriteString(fmt.Sprintf("...and %d more %s with new testimony.\n", rest, plural(rest, "bill", "bills")))
		}
	}

	if len(d.Users) > 0 {
		b.WriteString("\nPeople you follow:\n")
		for _, user := range d.Users {
			b.WriteString(fmt.Sprintf("- %s: %d new %s\n", user.UserName, user.NewTestimonyCount, plural(user.NewTestimonyCount, "testimony", "testimonies")))
			for _, bill := range user.Bills {
				b.WriteString(fmt.Sprintf("  * %s (%s): %s\n", bill.BillID, bill.Court, bill.Position))
			}
		}
		if rest := d.NumUsersWithNewTestimony - len(d.Users); rest > 0 {
			b.WriteString(fmt.Sprintf("...and %d more %s with new testimony.\n", rest, plural(rest, "person", "people")))
		}
	}

	return strings.TrimSpace(b.String())
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
