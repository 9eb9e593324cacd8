package clock

var westronMonths = [MonthsPerYear]string{
	"Afteryule", "Solmath", "Rethe", "Astron", "Thrimidge", "Forelithe",
	"Afterlithe", "Wedmath", "Halimath", "Winterfilth", "Blotmath", "Foreyule",
}

var sindarinMonths = [MonthsPerYear]string{
	"Narwain", "Ninui", "Gwaeron", "Gwirith", "Lothron", "Norui",
	"Cerveth", "Urui", "Ivanneth", "Narbeleth", "Hithui", "Girithron",
}

var westronWeekDays = [DaysPerWeek]string{
	"Sunday", "Monday", "Trewsday", "Hevensday", "Mersday", "Highday", "Sterday",
}

var sindarinWeekDays = [DaysPerWeek]string{
	"Oranor", "Orithil", "Orgaladhad", "Ormenel", "Oraearon", "Orbelain", "Orgilion",
}

// WestronMonth returns the Westron name of month m (0-based).
func WestronMonth(m int) string { return westronMonths[floorMod(m, MonthsPerYear)] }

// SindarinMonth returns the Sindarin name of month m (0-based).
func SindarinMonth(m int) string { return sindarinMonths[floorMod(m, MonthsPerYear)] }

// WestronWeekDay returns the Westron name of week day d (0 is Sunday).
func WestronWeekDay(d int) string { return westronWeekDays[floorMod(d, DaysPerWeek)] }

// SindarinWeekDay returns the Sindarin name of week day d (0 is Oranor).
func SindarinWeekDay(d int) string { return sindarinWeekDays[floorMod(d, DaysPerWeek)] }

// lookupMonth resolves a month name, trying Westron before Sindarin.
func lookupMonth(name string) (int, bool) {
	if i, ok := indexOf(westronMonths[:], name); ok {
		return i, true
	}
	return indexOf(sindarinMonths[:], name)
}

// lookupWeekDay resolves a week day name, trying Westron before Sindarin.
func lookupWeekDay(name string) (int, bool) {
	if i, ok := indexOf(westronWeekDays[:], name); ok {
		return i, true
	}
	return indexOf(sindarinWeekDays[:], name)
}

func indexOf(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

func ordinalSuffix(day int) string {
	switch day % 100 {
	case 11, 12, 13:
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
