package collector

import (
	"context"
	"time"

	"twitsent/pkg/models"
)

// Transport performs one search request against the provider
type Transport interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.Page, error)
}

// Executor issues a search request with throttling applied
type Executor interface {
	Execute(ctx context.Context, req models.SearchRequest) (*models.Page, error)
}

// Observer receives progress notifications during a run. Implementations must
// not block; the collector calls them synchronously.
type Observer interface {
	IntervalStarted(index, total int, window models.TimeWindow)
	IntervalCompleted(interval models.Interval, total int)
	RequestCompleted(duration time.Duration, err error)
	Throttled(cooldown time.Duration)
	Warned(w Warning)
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) IntervalStarted(int, int, models.TimeWindow) {}
func (NopObserver) IntervalCompleted(models.Interval, int) {}
func (NopObserver) RequestCompleted(time.Duration, error) {}
func (NopObserver) Throttled(time.Duration) {}
func (NopObserver) Warned(Warning) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) IntervalStarted(index, total int, window models.TimeWindow) {
	for _, obs := range o {
		obs.IntervalStarted(index, total, window)
	}
}

func (o Observers) IntervalCompleted(interval models.Interval, total int) {
	for _, obs := range o {
		obs.IntervalCompleted(interval, total)
	}
}

func (o Observers) RequestCompleted(duration time.Duration, err error) {
	for _, obs := range o {
		obs.RequestCompleted(duration, err)
	}
}

func (o Observers) Throttled(cooldown time.Duration) {
	for _, obs := range o {
		obs.Throttled(cooldown)
	}
}

func (o Observers) Warned(w Warning) {
	for _, obs := range o {
		obs.Warned(w)
	}
}
