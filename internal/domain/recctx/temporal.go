package recctx

import "time"

// Meal-time buckets, by hour of day.
const (
	breakfastStart = 6
	lunchStart     = 10
	afternoonStart = 15
	dinnerStart    = 18
	dinnerEnd      = 22
)

// Business hours and commute rush windows.
const (
	businessOpenHour  = 8
	businessCloseHour = 22

	morningRushStart = 7
	morningRushEnd   = 10
	eveningRushStart = 17
	eveningRushEnd   = 20
)

// MealTimeFor buckets an hour of day into a meal period.
func MealTimeFor(hour int) MealTime {
	switch {
	case hour >= breakfastStart && hour < lunchStart:
		return MealTimeBreakfast
	case hour >= lunchStart && hour < afternoonStart:
		return MealTimeLunch
	case hour >= afternoonStart && hour < dinnerStart:
		return MealTimeAfternoon
	case hour >= dinnerStart && hour < dinnerEnd:
		return MealTimeDinner
	default:
		return MealTimeLateNight
	}
}

// AppropriateMealTypes lists the meal types that fit a period.
func AppropriateMealTypes(mealTime MealTime) []string {
	switch mealTime {
	case MealTimeBreakfast:
		return []string{"breakfast"}
	case MealTimeLunch:
		return []string{"lunch"}
	case MealTimeAfternoon:
		return []string{"snack", "coffee"}
	case MealTimeDinner:
		return []string{"dinner"}
	default:
		return []string{"dinner", "snack"}
	}
}

// IsRushHour reports whether the hour falls into a commute rush window.
func IsRushHour(hour int) bool {
	return (hour >= morningRushStart && hour < morningRushEnd) ||
		(hour >= eveningRushStart && hour < eveningRushEnd)
}

// IsBusinessHours reports whether the hour falls into regular business hours.
func IsBusinessHours(hour int) bool {
	return hour >= businessOpenHour && hour < businessCloseHour
}

// ISOWeekday maps time.Weekday onto ISO numbering, Monday=1 through Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func buildTemporal(now time.Time) TemporalContext {
	hour := now.Hour()
	mealTime := MealTimeFor(hour)
	weekday := ISOWeekday(now)
	return TemporalContext{
		Hour:                 hour,
		DayOfWeek:            weekday,
		MealTime:             mealTime,
		AppropriateMealTypes: AppropriateMealTypes(mealTime),
		IsWeekend:            weekday >= 6,
		IsBusinessHours:      IsBusinessHours(hour),
		IsRushHour:           IsRushHour(hour),
	}
}
