package booker

import (
	"time"

	"wodbooker/utils"
)

// DatetimeToBook computes the next class occurrence a reservation should
// claim. The search starts the day after the last booked class, or today
// when nothing was booked yet, and advances to the next matching weekday.
// When the occurrence already passed, the following week is used.
func DatetimeToBook(now time.Time, lastBookDate *time.Time, dow, hour, minute int) time.Time {
	base := utils.DateOf(now)
	if lastBookDate != nil {
		candidate := utils.DateOf(*lastBookDate).AddDate(0, 0, 1)
		if candidate.After(base) {
			base = candidate
		}
	}

	day := utils.NextDateForWeekday(base, dow)
	target := utils.CombineMadrid(day, hour, minute, 0)
	if !target.After(now) {
		day = utils.NextDateForWeekday(utils.DateOf(now).AddDate(0, 0, 1), dow)
		target = utils.CombineMadrid(day, hour, minute, 0)
	}
	return target
}

// WindowOpen computes when the booking window for a class day opens:
// offset days before, at the given local clock time.
func WindowOpen(classDay time.Time, offset, hour, minute int) time.Time {
	return utils.CombineMadrid(utils.DateOf(classDay).AddDate(0, 0, -offset), hour, minute, 0)
}
