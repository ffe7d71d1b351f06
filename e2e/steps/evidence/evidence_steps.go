package evidence

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context these steps need.
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	ResponseField(path string) (interface{}, error)
	ResponseStringField(path string) (string, error)
	Save(name, value string)
	Saved(name string) string
}

// RegisterSteps registers evidence ingestion and review steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &evidenceSteps{tc: tc}

	ctx.Step(`^I ingest a "([^"]*)" record for "([^"]*)" on "([^"]*)"$`, steps.ingestSingle)
	ctx.Step(`^I save the first accepted evidence id as "([^"]*)"$`, steps.saveFirstAcceptedID)
	ctx.Step(`^I confirm the evidence saved as "([^"]*)"$`, steps.confirmSaved)
	ctx.Step(`^I dispute the evidence saved as "([^"]*)" because "([^"]*)"$`, steps.disputeSaved)
	ctx.Step(`^the batch should accept (\d+) and reject (\d+) records$`, steps.assertBatchCounts)
}

type evidenceSteps struct {
	tc TestContext
}

func (s *evidenceSteps) ingestSingle(sourceKind, country, date string) error {
	body := map[string]interface{}{
		"records": []map[string]interface{}{
			{
				"source_kind": sourceKind,
				"date":        date,
				"country":     country,
			},
		},
	}
	return s.tc.POST("/evidence/batch", body)
}

func (s *evidenceSteps) saveFirstAcceptedID(name string) error {
	value, err := s.tc.ResponseField("accepted")
	if err != nil {
		return err
	}
	items, ok := value.([]interface{})
	if !ok || len(items) == 0 {
		return fmt.Errorf("no accepted records in response")
	}
	first, ok := items[0].(map[string]interface{})
	if !ok {
		return fmt.Errorf("accepted[0] is not an object")
	}
	id, ok := first["id"].(string)
	if !ok {
		return fmt.Errorf("accepted[0].id is not a string")
	}
	s.tc.Save(name, id)
	return nil
}

func (s *evidenceSteps) confirmSaved(name string) error {
	return s.tc.POST("/evidence/"+s.tc.Saved(name)+"/confirm", map[string]interface{}{})
}

func (s *evidenceSteps) disputeSaved(name, reason string) error {
	return s.tc.POST("/evidence/"+s.tc.Saved(name)+"/dispute", map[string]interface{}{
		"note": reason,
	})
}

func (s *evidenceSteps) assertBatchCounts(accepted, rejected int) error {
	acceptedCount, err := s.responseLen("accepted")
	if err != nil {
		return err
	}
	rejectedCount, err := s.responseLen("rejected")
	if err != nil {
		return err
	}
	if acceptedCount != accepted || rejectedCount != rejected {
		return fmt.Errorf("expected %d accepted / %d rejected, got %d / %d",
			accepted, rejected, acceptedCount, rejectedCount)
	}
	return nil
}

func (s *evidenceSteps) responseLen(field string) (int, error) {
	value, err := s.tc.ResponseField(field)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	items, ok := value.([]interface{})
	if !ok {
		return 0, fmt.Errorf("field %q is not an array", field)
	}
	return len(items), nil
}
