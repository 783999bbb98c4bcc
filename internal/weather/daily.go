package weather

import "time"

// DailySummary condenses one calendar day of forecast steps.
type DailySummary struct {
	Date      time.Time `json:"date"` // midnight UTC
	MinTemp   float64   `json:"minTemp"`
	MaxTemp   float64   `json:"maxTemp"`
	AvgTemp   float64   `json:"avgTemp"`
	Condition Condition `json:"condition"`
	Icon      string    `json:"icon"`
	Steps     int       `json:"steps"`
}

// DailySummaries groups forecast steps by UTC day, preserving the list order.
// The condition is the one seen most often that day (first seen wins a tie).
// Entries with an unparsable dt_txt are skipped.
func DailySummaries(list ForecastList) []DailySummary {
	var (
		out    []DailySummary
		counts []map[Condition]int
		order  []map[Condition]int
		icons  []map[Condition]string
		sums   []float64
	)
	index := make(map[string]int)

	for _, e := range list.List {
		ts, err := e.Time()
		if err != nil {
			continue
		}
		key := ts.Format("2006-01-02")

		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, DailySummary{
				Date:    time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
				MinTemp: e.Main.Temp,
				MaxTemp: e.Main.Temp,
			})
			counts = append(counts, make(map[Condition]int))
			order = append(order, make(map[Condition]int))
			icons = append(icons, make(map[Condition]string))
			sums = append(sums, 0)
		}

		day := &out[i]
		if e.Main.Temp < day.MinTemp {
			day.MinTemp = e.Main.Temp
		}
		if e.Main.Temp > day.MaxTemp {
			day.MaxTemp = e.Main.Temp
		}
		sums[i] += e.Main.Temp
		day.Steps++

		sky := e.Sky()
		cond := ConditionOf(sky.Main)
		if _, seen := order[i][cond]; !seen {
			order[i][cond] = len(order[i])
			icons[i][cond] = sky.Icon
		}
		counts[i][cond]++
	}

	for i := range out {
		out[i].AvgTemp = sums[i] / float64(out[i].Steps)

		best, bestCount, bestOrder := ConditionUnknown, 0, 0
		for cond, n := range counts[i] {
			if n > bestCount || (n == bestCount && order[i][cond] < bestOrder) {
				best, bestCount, bestOrder = cond, n, order[i][cond]
			}
		}
		out[i].Condition = best
		out[i].Icon = icons[i][best]
	}

	return out
}
