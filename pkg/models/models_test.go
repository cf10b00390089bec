package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	errs "twitsent/pkg/errors"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCollectionSpecValidate(t *testing.T) {
	valid := CollectionSpec{
		Rule:                "covid",
		Start:               t0,
		End:                 t0.Add(24 * time.Hour),
		IntervalLength:      4 * time.Hour,
		MaxItemsPerInterval: 10,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*CollectionSpec)
	}{
		{"zero interval", func(s *CollectionSpec) { s.IntervalLength = 0 }},
		{"negative interval", func(s *CollectionSpec) { s.IntervalLength = -time.Minute }},
		{"zero cap", func(s *CollectionSpec) { s.MaxItemsPerInterval = 0 }},
		{"end equals start", func(s *CollectionSpec) { s.End = s.Start }},
		{"end before start", func(s *CollectionSpec) { s.End = s.Start.Add(-time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			err := spec.Validate()
			assert.Error(t, err)
			assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
		})
	}
}

func TestIntervalCount(t *testing.T) {
	tests := []struct {
		total    time.Duration
		interval time.Duration
		count    int
		partial  bool
	}{
		{240 * time.Minute, 240 * time.Minute, 1, false},
		{241 * time.Minute, 240 * time.Minute, 2, true},
		{24 * time.Hour, 4 * time.Hour, 6, false},
		{25 * time.Hour, 4 * time.Hour, 7, true},
		{time.Minute, time.Hour, 1, true},
	}

	for _, tt := range tests {
		spec := CollectionSpec{Start: t0, End: t0.Add(tt.total), IntervalLength: tt.interval, MaxItemsPerInterval: 1}
		assert.Equal(t, tt.count, spec.IntervalCount(), "total=%s interval=%s", tt.total, tt.interval)
		assert.Equal(t, tt.partial, spec.Partial(), "total=%s interval=%s", tt.total, tt.interval)
	}
}

func TestPageHasMore(t *testing.T) {
	var nilPage *Page
	assert.False(t, nilPage.HasMore())
	assert.False(t, (&Page{}).HasMore())
	assert.True(t, (&Page{NextCursor: "abc"}).HasMore())
}
