package marketdata

import (
	"fmt"
	"time"
)

// Timeframe is a candle granularity accepted by Questrade.
type Timeframe string

const (
	OneMinute      Timeframe = "OneMinute"
	TwoMinutes     Timeframe = "TwoMinutes"
	ThreeMinutes   Timeframe = "ThreeMinutes"
	FourMinutes    Timeframe = "FourMinutes"
	FiveMinutes    Timeframe = "FiveMinutes"
	TenMinutes     Timeframe = "TenMinutes"
	FifteenMinutes Timeframe = "FifteenMinutes"
	TwentyMinutes  Timeframe = "TwentyMinutes"
	HalfHour       Timeframe = "HalfHour"
	OneHour        Timeframe = "OneHour"
	TwoHours       Timeframe = "TwoHours"
	ThreeHours     Timeframe = "ThreeHours"
	FourHours      Timeframe = "FourHours"
	OneDay         Timeframe = "OneDay"
	OneWeek        Timeframe = "OneWeek"
	OneMonth       Timeframe = "OneMonth"
	OneYear        Timeframe = "OneYear"
)

// barLength is the nominal length of one bar. Months and years are
// approximated; WindowStart uses calendar arithmetic for them.
var barLength = map[Timeframe]time.Duration{
	OneMinute:      time.Minute,
	TwoMinutes:     2 * time.Minute,
	ThreeMinutes:   3 * time.Minute,
	FourMinutes:    4 * time.Minute,
	FiveMinutes:    5 * time.Minute,
	TenMinutes:     10 * time.Minute,
	FifteenMinutes: 15 * time.Minute,
	TwentyMinutes:  20 * time.Minute,
	HalfHour:       30 * time.Minute,
	OneHour:        time.Hour,
	TwoHours:       2 * time.Hour,
	ThreeHours:     3 * time.Hour,
	FourHours:      4 * time.Hour,
	OneDay:         24 * time.Hour,
	OneWeek:        7 * 24 * time.Hour,
	OneMonth:       31 * 24 * time.Hour,
	OneYear:        366 * 24 * time.Hour,
}

// Timeframes lists every granularity, shortest first.
var Timeframes = []Timeframe{
	OneMinute, TwoMinutes, ThreeMinutes, FourMinutes, FiveMinutes, TenMinutes,
	FifteenMinutes, TwentyMinutes, HalfHour, OneHour, TwoHours, ThreeHours,
	FourHours, OneDay, OneWeek, OneMonth, OneYear,
}

// ParseTimeframe validates s against the fixed vocabulary.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := barLength[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Valid reports whether tf is part of the vocabulary.
func (tf Timeframe) Valid() bool {
	_, ok := barLength[tf]
	return ok
}

// Duration is the nominal length of one bar.
func (tf Timeframe) Duration() time.Duration {
	return barLength[tf]
}

// WindowStart returns the start of a window ending at end that spans n bars.
func (tf Timeframe) WindowStart(end time.Time, n int) time.Time {
	switch tf {
	case OneMonth:
		return end.AddDate(0, -n, 0)
	case OneYear:
		return end.AddDate(-n, 0, 0)
	default:
		return end.Add(-tf.Duration() * time.Duration(n))
	}
}
