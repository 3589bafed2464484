package session

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// BucketKind identifies one of the display buckets, ordered by recency.
type BucketKind int

// Bucket kinds. Fixed buckets sort before month buckets.
const (
	BucketToday BucketKind = iota
	BucketYesterday
	BucketLast7Days
	BucketLast30Days
	BucketMonth
)

// GroupKey names a bucket. Year and Month are only set for BucketMonth.
type GroupKey struct {
	Kind  BucketKind
	Year  int
	Month time.Month
}

// String returns the display label of the bucket.
func (k GroupKey) String() string {
	switch k.Kind {
	case BucketToday:
		return "Today"
	case BucketYesterday:
		return "Yesterday"
	case BucketLast7Days:
		return "Last 7 Days"
	case BucketLast30Days:
		return "Last 30 Days"
	default:
		return fmt.Sprintf("%s %d", k.Month, k.Year)
	}
}

// Slug returns a stable machine-readable name, e.g. "last7Days" or "2024-03".
func (k GroupKey) Slug() string {
	switch k.Kind {
	case BucketToday:
		return "today"
	case BucketYesterday:
		return "yesterday"
	case BucketLast7Days:
		return "last7Days"
	case BucketLast30Days:
		return "last30Days"
	default:
		return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
	}
}

func compareKeys(a, b GroupKey) int {
	if a.Kind != b.Kind {
		return cmp.Compare(a.Kind, b.Kind)
	}
	if a.Kind != BucketMonth {
		return 0
	}
	// Most recent month first.
	if a.Year != b.Year {
		return cmp.Compare(b.Year, a.Year)
	}
	return cmp.Compare(b.Month, a.Month)
}

// Group is one non-empty bucket of sessions.
type Group struct {
	Key      GroupKey
	Sessions []Record
}

// GroupByDate partitions sessions into recency buckets relative to now.
// Calendar days are evaluated in now's location. Empty buckets are omitted,
// fixed buckets precede month buckets and month buckets run from most to
// least recent. Within a bucket sessions are ordered by CreatedAt
// descending, ties broken by ID ascending, so the result never depends on
// the order the store returned.
func GroupByDate(sessions []Record, now time.Time) []Group {
	buckets := make(map[GroupKey][]Record)
	for i := range sessions {
		key := classify(sessions[i].CreatedAt, now)
		buckets[key] = append(buckets[key], sessions[i])
	}

	groups := make([]Group, 0, len(buckets))
	for key, members := range buckets {
		slices.SortStableFunc(members, func(a, b Record) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
		groups = append(groups, Group{Key: key, Sessions: members})
	}
	slices.SortFunc(groups, func(a, b Group) int {
		return compareKeys(a.Key, b.Key)
	})

	return groups
}

func classify(createdAt, now time.Time) GroupKey {
	local := createdAt.In(now.Location())
	switch days := calendarDaysBetween(local, now); {
	case days <= 0:
		return GroupKey{Kind: BucketToday}
	case days == 1:
		return GroupKey{Kind: BucketYesterday}
	case days < 7:
		return GroupKey{Kind: BucketLast7Days}
	case days < 30:
		return GroupKey{Kind: BucketLast30Days}
	default:
		return GroupKey{Kind: BucketMonth, Year: local.Year(), Month: local.Month()}
	}
}

// calendarDaysBetween counts midnights between then and now. Dates are
// projected onto UTC so DST transitions do not skew the count.
func calendarDaysBetween(then, now time.Time) int {
	y1, m1, d1 := then.Date()
	y2, m2, d2 := now.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
