package nutrition

import "math"

// Macros holds the energy and macronutrient values of a food, meal or day.
// Calories are kcal; protein, carbs and fat are grams.
type Macros struct {
	Calories float64 `json:"calories" yaml:"calories" db:"calories"`
	Protein  float64 `json:"protein" yaml:"protein" db:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs" db:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat" db:"fat"`
}

// Add returns the element-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// Sum adds up any number of values. The sum of nothing is the zero value.
func Sum(values ...Macros) Macros {
	var total Macros
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// IsNegative reports whether any field is below zero.
func (m Macros) IsNegative() bool {
	return m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fat < 0
}

// Percent returns value as a percentage of target, rounded to one decimal.
// A non-positive target yields 0.
func Percent(value, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Round(value/target*1000) / 10
}
