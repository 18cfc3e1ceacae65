package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Difficulty levels accepted on a recipe.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Ingredient is one {name, amount, unit} line of a recipe.
type Ingredient struct {
	Name   string   `json:"name"`
	Amount Quantity `json:"amount"`
	Unit   string   `json:"unit"`
}

// Step is one numbered instruction. Numbers are 1-based and contiguous.
type Step struct {
	Number      int    `json:"number"`
	Instruction string `json:"instruction"`
}

// CookingTime is the {prep, cook, total} triple, e.g. "10 minutes".
type CookingTime struct {
	Prep  Quantity `json:"prep"`
	Cook  Quantity `json:"cook"`
	Total Quantity `json:"total"`
}

// DietaryInfo is the optional nutrition block of a recipe.
type DietaryInfo struct {
	Calories    Number   `json:"calories"`
	Protein     Quantity `json:"protein"`
	Carbs       Quantity `json:"carbs"`
	Fats        Quantity `json:"fats"`
	Fiber       Quantity `json:"fiber"`
	Sodium      Quantity `json:"sodium"`
	DietaryTags []string `json:"dietaryTags"`
	Allergens   []string `json:"allergens"`
}

// Recipe is the recipe shape the assistant is instructed to produce.
type Recipe struct {
	Title       string       `json:"title"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	CookingTime *CookingTime `json:"cookingTime"`
	Servings    Servings     `json:"servings"`
	Difficulty  string       `json:"difficulty"`
	DietaryInfo *DietaryInfo `json:"dietaryInfo,omitempty"`
}

// Servings accepts a JSON number, a numeric string ("4", "4 servings") or
// an object carrying a Value field.
type Servings int

func (s *Servings) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Servings(int(num))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		n, err := leadingInt(str)
		if err != nil {
			return fmt.Errorf("invalid servings %q", str)
		}
		*s = Servings(n)
		return nil
	}

	var obj struct {
		Value json.RawMessage `json:"Value"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Value) > 0 {
		return s.UnmarshalJSON(obj.Value)
	}

	return fmt.Errorf("invalid servings format")
}

func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strconv.Atoi(s[:end])
}

// Quantity is a free-form amount such as "200g" or "1/2". Models sometimes
// emit bare numbers, which are kept in their JSON text form.
type Quantity string

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*q = Quantity(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*q = Quantity(num.String())
		return nil
	}
	if string(data) == "null" {
		*q = ""
		return nil
	}
	return fmt.Errorf("invalid quantity %s", string(data))
}

// Number is a float that also accepts numeric strings like "350" or "350 kcal".
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		fields := strings.Fields(str)
		if len(fields) == 0 {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", str)
		}
		*n = Number(f)
		return nil
	}
	return fmt.Errorf("invalid number %s", string(data))
}
