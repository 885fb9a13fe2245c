package ifb

import (
	"regexp"
	"strconv"

	"crowdfund-scraper/utils"
)

var yearRegexp = regexp.MustCompile(`\d{4}`)

// ClassifyYear returns the calendar year bucket of a listing date: the first
// run of four digits, after Persian and Arabic-Indic digits are folded to ASCII.
func ClassifyYear(date string) (int, bool) {
	match := yearRegexp.FindString(utils.FoldDigits(date))
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}
