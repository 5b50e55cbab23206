package format

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/getwowai/showcase/internal/i18n"
)

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

var arabicWeekdays = [...]string{
	"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت",
}

func printer(l i18n.Locale) *message.Printer {
	return message.NewPrinter(language.Make(string(l)))
}

// FmtNumber formats n with the locale's grouping separators and digits.
// Example: FmtNumber(12345, i18n.EN) => "12,345"
func FmtNumber(n int64, l i18n.Locale) string {
	return printer(l).Sprintf("%d", n)
}

// FmtDate formats t in a locale-friendly short form.
func FmtDate(t time.Time, l i18n.Locale) string {
	if l == i18n.AR {
		return fmt.Sprintf("%d %s %d", t.Day(), arabicMonths[t.Month()-1], t.Year())
	}
	return t.Format("Jan 2, 2006")
}

// FmtDateTime formats a webinar start time including weekday and zone.
func FmtDateTime(t time.Time, l i18n.Locale) string {
	if l == i18n.AR {
		return fmt.Sprintf("%s %s، %s %s", arabicWeekdays[t.Weekday()], FmtDate(t, l), t.Format("15:04"), t.Format("MST"))
	}
	return t.Format("Monday, Jan 2, 2006 at 15:04 MST")
}
