package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(raw string) (Date, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return Date{Time: parsed}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type UserRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	StartDate   Date     `json:"start_date"`
	EndDate     Date     `json:"end_date"`
	Travelers   int      `json:"travelers"`
	BudgetTotal float64  `json:"budget_total"`
	Interests   []string `json:"interests"`
}

func (r UserRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Origin) == "":
		return fmt.Errorf("%w: origin is required", ErrInvalidInput)
	case strings.TrimSpace(r.Destination) == "":
		return fmt.Errorf("%w: destination is required", ErrInvalidInput)
	case r.StartDate.IsZero() || r.EndDate.IsZero():
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidInput)
	case !r.EndDate.After(r.StartDate.Time):
		return fmt.Errorf("%w: end_date must be after start_date", ErrInvalidInput)
	case r.Travelers <= 0:
		return fmt.Errorf("%w: travelers must be positive", ErrInvalidInput)
	case r.BudgetTotal < 0:
		return fmt.Errorf("%w: budget_total must not be negative", ErrInvalidInput)
	}
	return nil
}

// Nights is the length of stay, never less than one.
func (r UserRequest) Nights() int {
	return max(1, r.StartDate.DaysUntil(r.EndDate))
}

// Days counts calendar days including both ends.
func (r UserRequest) Days() int {
	return r.StartDate.DaysUntil(r.EndDate) + 1
}

// Season returns the northern-hemisphere season of the date.
func (d Date) Season() string {
	switch d.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "fall"
	}
}
