package scraper

import "fmt"

// LastWeekday runs the compressed bell schedule.
const LastWeekday = "Piektdiena"

// lessonBlockMinutes is the fixed length of one scheduled lesson block.
const lessonBlockMinutes = 80

// defaultStartTime is the fallback for periods outside the anchor set.
const defaultStartTime = "08:00:00"

// Bell schedules keyed by the odd anchor periods.
var regularStartTimes = map[int]string{
	1: "08:30:00",
	3: "10:10:00",
	5: "12:30:00",
	7: "14:00:00",
	9: "15:30:00",
}

var lastWeekdayStartTimes = map[int]string{
	1: "08:10:00",
	3: "09:40:00",
	5: "11:10:00",
	7: "13:00:00",
	9: "14:30:00",
}

// StartTime returns the HH:MM:SS wall-clock start for a period on a day.
// Unknown periods fall back to the default start time.
func StartTime(dayName string, period int) string {
	table := regularStartTimes
	if dayName == LastWeekday {
		table = lastWeekdayStartTimes
	}
	if start, ok := table[period]; ok {
		return start
	}
	return defaultStartTime
}

// EndTime returns the start time advanced by the lesson block length. The
// arithmetic wraps within a 24h clock; no calendar date is involved.
func EndTime(dayName string, period int) string {
	return addClockMinutes(StartTime(dayName, period), lessonBlockMinutes)
}

func addClockMinutes(clock string, minutes int) string {
	var h, m, s int
	if _, err := fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &s); err != nil {
		return clock
	}
	total := (h*3600 + m*60 + s + minutes*60) % 86400
	if total < 0 {
		total += 86400
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
