package domain

// DaysPerYear 天数换算年化时使用的日历天数
const DaysPerYear = 365.0

// DaysToYears 天 -> 年
func DaysToYears(days float64) float64 { return days / DaysPerYear }

// PercentToFraction 百分数 -> 小数，4.5 -> 0.045
func PercentToFraction(pct float64) float64 { return pct / 100 }
