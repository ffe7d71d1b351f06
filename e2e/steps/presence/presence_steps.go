package presence

import (
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context these steps need.
type TestContext interface {
	GET(path string) error
	ResponseField(path string) (interface{}, error)
}

// RegisterSteps registers presence calendar and insight steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &presenceSteps{tc: tc}

	ctx.Step(`^I request the presence calendar from "([^"]*)" to "([^"]*)"$`, steps.requestCalendar)
	ctx.Step(`^I request presence insights from "([^"]*)" to "([^"]*)"$`, steps.requestInsights)
	ctx.Step(`^the calendar should have (\d+) days$`, steps.assertTotalDays)
	ctx.Step(`^the calendar day "([^"]*)" should be in "([^"]*)"$`, steps.assertDayCountry)
}

type presenceSteps struct {
	tc TestContext
}

func (s *presenceSteps) requestCalendar(from, to string) error {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	return s.tc.GET("/presence/calendar?" + q.Encode())
}

func (s *presenceSteps) requestInsights(from, to string) error {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	return s.tc.GET("/presence/insights?" + q.Encode())
}

func (s *presenceSteps) assertTotalDays(expected int) error {
	value, err := s.tc.ResponseField("total_days")
	if err != nil {
		return err
	}
	total, ok := value.(float64)
	if !ok {
		return fmt.Errorf("total_days is %T, not a number", value)
	}
	if int(total) != expected {
		return fmt.Errorf("expected %d calendar days, got %d", expected, int(total))
	}
	return nil
}

func (s *presenceSteps) assertDayCountry(date, country string) error {
	value, err := s.tc.ResponseField("days")
	if err != nil {
		return err
	}
	days, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("days is not an array")
	}
	for _, raw := range days {
		day, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if day["date"] == date {
			if day["country"] != country {
				return fmt.Errorf("day %s: expected country %q, got %v", date, country, day["country"])
			}
			return nil
		}
	}
	return fmt.Errorf("day %s not present in calendar", date)
}
