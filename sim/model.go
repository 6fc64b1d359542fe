package sim

// Completion is an activity the resource model has driven to a terminal state.
type Completion struct {
	Activity  Activity
	State     ActivityState // StateFinished or StateFailed
	Remaining float64
}

// ResourceModel decides how fast started activities progress on the
// resources they claim. The kernel owns the clock; the model only answers
// when the next activity ends.
type ResourceModel interface {
	// NotifyStarted begins tracking a. Its demand is read from a.Demand().
	NotifyStarted(a Activity, now float64)
	// Remaining returns the work left for a tracked activity.
	Remaining(a Activity) float64
	// NextEvent advances every tracked activity up to the next completion,
	// never past limit when limit >= 0, and returns the date reached with
	// the activities that ended there in start order. date < 0 means
	// nothing progresses.
	NextEvent(now, limit float64) (date float64, done []Completion)
	NotifySuspended(a Activity)
	NotifyResumed(a Activity)
	// NotifyCanceled stops tracking a.
	NotifyCanceled(a Activity)
}

// NewResourceModelFunc creates the default ResourceModel.
// Registered by sim/resource's init().
var NewResourceModelFunc func() ResourceModel
