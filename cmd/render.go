package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/guilhermegouw/chatkeeper/internal/session"
)

// printGroups writes the date-grouped list, one section per bucket.
func printGroups(w io.Writer, groups []session.Group, now time.Time) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No chats.")
		return
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, g.Key.String())
		printRecords(w, g.Sessions, now, "  ")
	}
}

// printSessions writes an ungrouped list.
func printSessions(w io.Writer, records []session.Record, now time.Time, empty string) {
	if len(records) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	printRecords(w, records, now, "")
}

func printRecords(w io.Writer, records []session.Record, now time.Time, indent string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i := range records {
		r := &records[i]
		fmt.Fprintf(tw, "%s%s\t%s\t%s ago\n", indent, r.ID, r.Title, session.FormatTimeDifference(now, r.CreatedAt))
	}
	_ = tw.Flush() //nolint:errcheck // the underlying writer is the command output
}
