// Package format renders backend values for people: timestamps, prices, phones.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Timestamp renders t relative to the current day.
func Timestamp(t time.Time) string {
	return TimestampAt(t, time.Now())
}

// TimestampAt renders t as "Today at 15:04:05", "Yesterday at 15:04:05" or
// "Jan 02, 2006 15:04:05", judging days in now's location.
func TimestampAt(t, now time.Time) string {
	t = t.In(now.Location())
	clock := t.Format("15:04:05")

	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return "Today at " + clock
	}
	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if ty == yy && tm == ym && td == yd {
		return "Yesterday at " + clock
	}
	return t.Format("Jan 02, 2006 15:04:05")
}

// RelativeTime renders t as "5 minutes ago" or "in about 2 hours".
func RelativeTime(t time.Time) string {
	return RelativeTimeAt(t, time.Now())
}

// RelativeTimeAt is RelativeTime against a fixed now.
func RelativeTimeAt(t, now time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}
	phrase := distance(d)
	if future {
		return "in " + phrase
	}
	return phrase + " ago"
}

// distance buckets d the way people say it out loud.
func distance(d time.Duration) string {
	const day = 24 * time.Hour
	secs := d.Seconds()
	mins := int(math.Round(secs / 60))

	switch {
	case secs < 30:
		return "less than a minute"
	case mins < 2:
		return "1 minute"
	case mins < 45:
		return fmt.Sprintf("%d minutes", mins)
	case mins < 90:
		return "about 1 hour"
	case mins < 24*60:
		return fmt.Sprintf("about %d hours", int(math.Round(float64(mins)/60)))
	case mins < 42*60:
		return "1 day"
	case d < 30*day:
		return fmt.Sprintf("%d days", int(math.Round(float64(mins)/(24*60))))
	case d < 45*day:
		return "about 1 month"
	case d < 60*day:
		return "about 2 months"
	case d < 365*day:
		return fmt.Sprintf("%d months", int(math.Round(float64(d)/float64(30*day))))
	}
	years := int(d / (365 * day))
	if years == 1 {
		return "about 1 year"
	}
	return fmt.Sprintf("about %d years", years)
}

// Currency formats known to Price. Anything else is rendered "<CODE> 1,234.50".
var currencies = map[string]struct {
	symbol string
	tag    language.Tag
}{
	"USD": {"$", language.AmericanEnglish},
	"BRL": {"R$ ", language.BrazilianPortuguese},
	"EUR": {"€", language.AmericanEnglish},
}

// Price formats amount in currency (default USD): "$1,234.50", "R$ 1.234,50".
func Price(amount float64, currency string) string {
	code := strings.ToUpper(currency)
	if code == "" {
		code = "USD"
	}

	c, ok := currencies[code]
	if !ok {
		c.symbol, c.tag = code+" ", language.AmericanEnglish
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + c.symbol + message.NewPrinter(c.tag).Sprintf("%.2f", amount)
}

// OptionalPrice formats a nullable price, "-" when absent.
func OptionalPrice(amount *float64, currency string) string {
	if amount == nil {
		return "-"
	}
	return Price(*amount, currency)
}

// PhoneNumber prefixes "+" unless already present.
func PhoneNumber(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}

// Truncate cuts text to maxLen runes and appends "..." when it was longer.
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLen]) + "..."
}

// Deref returns *s, or def when s is nil or empty.
func Deref(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
