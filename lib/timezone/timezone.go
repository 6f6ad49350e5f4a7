package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Colombo")
	if err != nil {
		panic(err)
	}
}

// force timezone to be in Colombo because the central bank dates its
// observations locally and our hosts are not guaranteed to run there,
// which would skew anything derived from <time.Time>.Year()/Month()/Day()
func Now() time.Time {
	return time.Now().In(Location)
}

// TrailingWindow returns the Colombo calendar dates `days` back from
// `now` through `now` itself, both at midnight. it is used to fill the
// from/to fields of upstream query forms.
func TrailingWindow(now time.Time, days int) (start, stop time.Time) {
	now = now.In(Location)
	stop = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, Location)
	start = stop.AddDate(0, 0, -days)
	return start, stop
}
