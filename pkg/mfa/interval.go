package mfa

// PollInterval returns the poll delay in seconds for the given auth counter.
// Counters beyond the end of the schedule repeat the last interval, so the
// schedule escalates and then stays flat. The intervals slice must not be
// empty; config parsing guarantees that.
func PollInterval(intervals []int, authCounter int) int {
	if authCounter >= len(intervals) {
		authCounter = len(intervals) - 1
	}
	if authCounter < 0 {
		authCounter = 0
	}
	return intervals[authCounter]
}
