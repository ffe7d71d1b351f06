package report

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

// RegisterSteps registers report generation and export steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &reportSteps{tc: tc}

	ctx.Step(`^I generate a "([^"]*)" report titled "([^"]*)" from "([^"]*)" to "([^"]*)"$`, steps.generate)
	ctx.Step(`^I save the generated report id as "([^"]*)"$`, steps.saveReportID)
	ctx.Step(`^I export the report saved as "([^"]*)" in "([^"]*)" format$`, steps.export)
	ctx.Step(`^I regenerate the report saved as "([^"]*)"$`, steps.regenerate)
	ctx.Step(`^the export filename should end with "([^"]*)"$`, steps.assertFilenameSuffix)
}

type reportSteps struct {
	tc TestContext
}

func (s *reportSteps) generate(reportType, title, from, to string) error {
	return s.tc.POST("/reports/generate", map[string]interface{}{
		"report_type": reportType,
		"title":       title,
		"start_date":  from,
		"end_date":    to,
	})
}

func (s *reportSteps) saveReportID(name string) error {
	id, err := s.tc.ResponseStringField("report.id")
	if err != nil {
		return err
	}
	s.tc.Save(name, id)
	return nil
}

func (s *reportSteps) export(name, format string) error {
	return s.tc.GET("/reports/" + s.tc.Saved(name) + "/export?format=" + format)
}

func (s *reportSteps) regenerate(name string) error {
	return s.tc.POST("/reports/"+s.tc.Saved(name)+"/regenerate", nil)
}

func (s *reportSteps) assertFilenameSuffix(suffix string) error {
	filename, err := s.tc.ResponseStringField("filename")
	if err != nil {
		return err
	}
	if len(filename) < len(suffix) || filename[len(filename)-len(suffix):] != suffix {
		return fmt.Errorf("filename %q does not end with %q", filename, suffix)
	}
	return nil
}
