package job

import "fmt"

// Event is a stage outcome reported by the pipeline.
type Event interface {
	name() string
}

type (
	StartCollecting struct{}
	// DetailsFetched records how many videos had retrievable details.
	DetailsFetched struct{ Total int }
	StartFiltering struct{}
	// Classified records the size of the kept set.
	Classified      struct{ Filtered int }
	StartExtracting struct{}
	// Complete ends the job; Restaurants is the number of records built.
	Complete struct{ Restaurants int }
	Fail     struct{ Message string }
)

func (StartCollecting) name() string { return "start_collecting" }
func (DetailsFetched) name() string  { return "details_fetched" }
func (StartFiltering) name() string  { return "start_filtering" }
func (Classified) name() string      { return "classified" }
func (StartExtracting) name() string { return "start_extracting" }
func (Complete) name() string        { return "complete" }
func (Fail) name() string            { return "fail" }

const unknownError = "unknown error"

// Transition computes the job that results from applying ev to cur. It never
// mutates cur. Counters only grow and terminal jobs accept nothing.
func Transition(cur ScanJob, ev Event) (ScanJob, error) {
	if cur.Status.Terminal() {
		return cur, fmt.Errorf("%w: %s on %s job %s", ErrTerminal, ev.name(), cur.Status, cur.ID)
	}

	next := cur
	invalid := func() (ScanJob, error) {
		return cur, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev.name(), cur.Status)
	}

	switch e := ev.(type) {
	case StartCollecting:
		if cur.Status != StatusPending {
			return invalid()
		}
		next.Status = StatusCollecting

	case DetailsFetched:
		if cur.Status != StatusCollecting || e.Total < 0 {
			return invalid()
		}
		next.TotalVideos = max(cur.TotalVideos, e.Total)

	case StartFiltering:
		if cur.Status != StatusCollecting {
			return invalid()
		}
		next.Status = StatusFiltering

	case Classified:
		if cur.Status != StatusFiltering || e.Filtered < 0 {
			return invalid()
		}
		next.FilteredCount = max(cur.FilteredCount, e.Filtered)

	case StartExtracting:
		if cur.Status != StatusFiltering {
			return invalid()
		}
		next.Status = StatusExtracting

	case Complete:
		// collecting and filtering complete early when nothing is left to do
		if cur.Status == StatusPending || e.Restaurants < 0 {
			return invalid()
		}
		next.Status = StatusCompleted
		next.RestaurantCount = max(cur.RestaurantCount, e.Restaurants)

	case Fail:
		next.Status = StatusFailed
		next.ErrorMessage = e.Message
		if next.ErrorMessage == "" {
			next.ErrorMessage = unknownError
		}

	default:
		return invalid()
	}
	return next, nil
}
