package systems

import "fmt"

// Season of the year. Each habitat has one average temperature per season.
type Season uint8

const (
	Winter Season = iota
	Spring
	Summer
	Fall
)

// NumSeasons is the number of seasons.
const NumSeasons = 4

func (s Season) String() string {
	switch s {
	case Winter:
		return "winter"
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Fall:
		return "fall"
	}
	return fmt.Sprintf("Season(%d)", uint8(s))
}

// SeasonOf maps a calendar month (1-12) to its season:
// 12,1,2 winter; 3-5 spring; 6-8 summer; 9-11 fall.
func SeasonOf(month int) Season {
	return Season((month % 12) / 3)
}
