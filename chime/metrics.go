package chime

import (
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	MChimes         = stats.Int64("chime/chimes", "Number of chimes dispatched", stats.UnitDimensionless)
	MCallbackErrors = stats.Int64("chime/callback_errors", "Number of callback errors", stats.UnitDimensionless)
	MDispatchLag    = stats.Float64("chime/dispatch_lag", "Delay between scheduled and actual dispatch", "ms")
)

var (
	KeyOutcome, _ = tag.NewKey("outcome")
)

var (
	ChimesView = &view.View{
		Name:        "chimes",
		Measure:     MChimes,
		Description: "The number of dispatched chimes",
		TagKeys:     []tag.Key{KeyOutcome},
		Aggregation: view.Count(),
	}
	CallbackErrorsView = &view.View{
		Name:        "callback_errors",
		Measure:     MCallbackErrors,
		Description: "The number of callback errors",
		Aggregation: view.Count(),
	}
	DispatchLagView = &view.View{
		Name:        "dispatch_lag",
		Measure:     MDispatchLag,
		Description: "Dispatch lag distribution",
		Aggregation: view.Distribution(0, 1, 2, 5, 10, 20, 50, 100, 250, 500, 1000, 5000),
	}
)

func RegisterViews() error {
	return view.Register(ChimesView, CallbackErrorsView, DispatchLagView)
}
