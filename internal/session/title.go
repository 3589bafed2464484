package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// TitleLength is the number of grapheme clusters kept by DeriveTitle.
const TitleLength = 20

// DeriveTitle builds a session title from its first message. Messages
// longer than TitleLength clusters are cut and suffixed with "...".
func DeriveTitle(firstMessage string) string {
	firstMessage = strings.TrimSpace(firstMessage)
	if uniseg.GraphemeClusterCount(firstMessage) <= TitleLength {
		return firstMessage
	}

	var sb strings.Builder
	g := uniseg.NewGraphemes(firstMessage)
	for n := 0; n < TitleLength && g.Next(); n++ {
		sb.WriteString(g.Str())
	}
	return strings.TrimSpace(sb.String()) + "..."
}

// FormatTimeDifference renders the distance between two instants as
// "N unit(s)", e.g. "1 minute" or "3 days".
func FormatTimeDifference(a, b time.Time) string {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	seconds := int64(diff / time.Second)

	switch {
	case seconds < 60:
		return plural(seconds, "second")
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 30*86400:
		return plural(seconds/86400, "day")
	case seconds < 365*86400:
		return plural(seconds/(30*86400), "month")
	default:
		return plural(seconds/(365*86400), "year")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
