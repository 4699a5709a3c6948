package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		panic(err)
	}
}

// the groupware renders every date in KST, so dates must be
// constructed and compared there no matter where the process runs
func Now() time.Time {
	return time.Now().In(Location)
}

// Date returns midnight of the given calendar day in KST.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Location)
}

// Day truncates a timestamp to midnight of its calendar day in KST.
func Day(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}
