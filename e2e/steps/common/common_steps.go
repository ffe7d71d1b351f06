package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context these steps need.
type TestContext interface {
	Reset()
	SetToken(token string)
	SetAdapterKey(key string)
	POST(path string, body interface{}) error
	GET(path string) error
	DELETE(path string) error
	LastStatus() int
	LastBody() []byte
	ResponseField(path string) (interface{}, error)
	ResponseStringField(path string) (string, error)
	Save(name, value string)
	Saved(name string) string
}

// RegisterSteps registers the generic request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})

	ctx.Step(`^I am authenticated as user "([^"]*)"$`, steps.authenticateAs)
	ctx.Step(`^I am not authenticated$`, steps.clearCredentials)
	ctx.Step(`^I present adapter key "([^"]*)"$`, steps.presentAdapterKey)

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I DELETE "([^"]*)"$`, steps.del)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postWithBody)

	ctx.Step(`^the response status should be (\d+)$`, steps.assertStatus)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.assertField)
	ctx.Step(`^the response field "([^"]*)" should exist$`, steps.assertFieldExists)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.assertBodyContains)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveField)
}

type commonSteps struct {
	tc TestContext
}

// authenticateAs exchanges a known test identity for a bearer token. The
// service under test runs with a deterministic signing key in e2e mode; the
// token is minted by the harness wrapper and exposed via the environment, so
// the step only selects which prepared identity to use.
func (s *commonSteps) authenticateAs(name string) error {
	token := tokenForIdentity(name)
	if token == "" {
		return fmt.Errorf("no prepared token for identity %q", name)
	}
	s.tc.SetToken(token)
	return nil
}

func (s *commonSteps) clearCredentials() error {
	s.tc.SetToken("")
	s.tc.SetAdapterKey("")
	return nil
}

func (s *commonSteps) presentAdapterKey(name string) error {
	key := s.tc.Saved("adapter_key:" + name)
	if key == "" {
		key = name
	}
	s.tc.SetAdapterKey(key)
	return nil
}

func (s *commonSteps) get(path string) error {
	return s.tc.GET(s.expand(path))
}

func (s *commonSteps) del(path string) error {
	return s.tc.DELETE(s.expand(path))
}

func (s *commonSteps) postWithBody(path string, body *godog.DocString) error {
	return s.tc.POST(s.expand(path), body.Content)
}

func (s *commonSteps) assertStatus(expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) assertField(path, expected string) error {
	value, err := s.tc.ResponseField(path)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("field %q: expected %q, got %v", path, expected, value)
	}
	return nil
}

func (s *commonSteps) assertFieldExists(path string) error {
	_, err := s.tc.ResponseField(path)
	return err
}

func (s *commonSteps) assertBodyContains(fragment string) error {
	if !strings.Contains(string(s.tc.LastBody()), fragment) {
		return fmt.Errorf("response does not contain %q: %s", fragment, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) saveField(path, name string) error {
	value, err := s.tc.ResponseStringField(path)
	if err != nil {
		return err
	}
	s.tc.Save(name, value)
	return nil
}

// expand substitutes {name} placeholders with values saved by earlier steps.
func (s *commonSteps) expand(path string) string {
	for strings.Contains(path, "{") {
		start := strings.Index(path, "{")
		end := strings.Index(path, "}")
		if end < start {
			break
		}
		name := path[start+1 : end]
		path = path[:start] + s.tc.Saved(name) + path[end+1:]
	}
	return path
}
