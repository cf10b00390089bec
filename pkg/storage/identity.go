package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "twitsent/pkg/errors"
)

// Kind distinguishes text series from sentiment series
type Kind string

const (
	KindText      Kind = "text"
	KindSentiment Kind = "sentiment"
)

const (
	// DateLayout renders civil dates as m.d.yy without padding.
	DateLayout = "1.2.06"

	archivedPrefix = "archived_"
	sampleSuffix   = "sample"
	fileExt        = ".csv"
)

// Prefix returns the filename prefix for the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindText:
		return "tweet"
	case KindSentiment:
		return "senti"
	default:
		return ""
	}
}

func kindFromPrefix(prefix string) (Kind, bool) {
	switch prefix {
	case "tweet":
		return KindText, true
	case "senti":
		return KindSentiment, true
	default:
		return "", false
	}
}

// Identity names one stored series. Two identities that differ only in EndDate
// are the same series at different extension points.
type Identity struct {
	Kind            Kind      `json:"kind"`
	Sample          bool      `json:"sample"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	MaxItems        int       `json:"max_items"`
	IntervalMinutes int       `json:"interval_minutes"`
}

// CivilDate truncates t to midnight UTC of its UTC calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewIdentity builds an identity with civil dates.
func NewIdentity(kind Kind, sample bool, start, end time.Time, maxItems, intervalMinutes int) Identity {
	return Identity{
		Kind:            kind,
		Sample:          sample,
		StartDate:       CivilDate(start),
		EndDate:         CivilDate(end),
		MaxItems:        maxItems,
		IntervalMinutes: intervalMinutes,
	}
}

// WithEnd returns a copy of id ending at end.
func (id Identity) WithEnd(end time.Time) Identity {
	id.EndDate = CivilDate(end)
	return id
}

// Validate checks that id can name a file.
func (id Identity) Validate() error {
	if id.Kind.Prefix() == "" {
		return errs.Validation("unknown series kind %q", id.Kind)
	}
	if id.StartDate.IsZero() || id.EndDate.IsZero() {
		return errs.Validation("series dates are required")
	}
	if id.EndDate.Before(id.StartDate) {
		return errs.Validation("series end %s is before start %s",
			id.EndDate.Format(DateLayout), id.StartDate.Format(DateLayout))
	}
	if id.MaxItems < 1 || id.IntervalMinutes < 1 {
		return errs.Validation("max items and interval minutes must be positive")
	}
	return nil
}

// TotalMinutes is the span between the encoded dates.
func (id Identity) TotalMinutes() int {
	return int(id.EndDate.Sub(id.StartDate) / time.Minute)
}

// Filename renders the on-disk name.
func (id Identity) Filename() string {
	suffix := ""
	if id.Sample {
		suffix = sampleSuffix
	}
	return fmt.Sprintf("%s_%s_%s_%d_%d_%s%s",
		id.Kind.Prefix(),
		id.StartDate.Format(DateLayout),
		id.EndDate.Format(DateLayout),
		id.MaxItems,
		id.IntervalMinutes,
		suffix,
		fileExt,
	)
}

func (id Identity) String() string {
	return strings.TrimSuffix(id.Filename(), fileExt)
}

// ParseFilename recovers an identity from a series file name. Archived names
// parse to the identity they had before archiving.
func ParseFilename(name string) (id Identity, archived bool, err error) {
	if strings.HasPrefix(name, archivedPrefix) {
		archived = true
		name = strings.TrimPrefix(name, archivedPrefix)
	}
	if !strings.HasSuffix(name, fileExt) {
		return Identity{}, false, errs.Validation("%q is not a series file", name)
	}

	parts := strings.Split(strings.TrimSuffix(name, fileExt), "_")
	if len(parts) != 6 {
		return Identity{}, false, errs.Validation("%q does not have six name fields", name)
	}

	kind, ok := kindFromPrefix(parts[0])
	if !ok {
		return Identity{}, false, errs.Validation("%q has unknown prefix %q", name, parts[0])
	}
	start, err := time.Parse(DateLayout, parts[1])
	if err != nil {
		return Identity{}, false, errs.Validation("%q has bad start date: %v", name, err)
	}
	end, err := time.Parse(DateLayout, parts[2])
	if err != nil {
		return Identity{}, false, errs.Validation("%q has bad end date: %v", name, err)
	}
	maxItems, err := strconv.Atoi(parts[3])
	if err != nil {
		return Identity{}, false, errs.Validation("%q has bad max items: %v", name, err)
	}
	interval, err := strconv.Atoi(parts[4])
	if err != nil {
		return Identity{}, false, errs.Validation("%q has bad interval: %v", name, err)
	}

	switch parts[5] {
	case "":
	case sampleSuffix:
		id.Sample = true
	default:
		return Identity{}, false, errs.Validation("%q has unknown suffix %q", name, parts[5])
	}

	id.Kind = kind
	id.StartDate = start
	id.EndDate = end
	id.MaxItems = maxItems
	id.IntervalMinutes = interval
	return id, archived, id.Validate()
}
