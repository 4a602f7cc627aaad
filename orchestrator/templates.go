package orchestrator

import (
	"bytes"
	"fmt"
	"text/template"
)

// Templates holds the operator-configurable message texts. Each template may
// reference the fields of templateData.
type Templates struct {
	// Acknowledgment is sent to the asker once the responder received the
	// question.
	Acknowledgment string `json:"acknowledgment" yaml:"acknowledgment"`

	// FollowUp nudges a responder whose wait window expired.
	FollowUp string `json:"follow_up" yaml:"follow_up"`

	// HandoffNotice tells the asker the question moved to a new responder.
	HandoffNotice string `json:"handoff_notice" yaml:"handoff_notice"`

	// EscalatedQuestion is the question as re-sent to the next responder,
	// annotated with prior escalation context.
	EscalatedQuestion string `json:"escalated_question" yaml:"escalated_question"`

	// CancelConfirmation is sent to the asker after a cancel.
	CancelConfirmation string `json:"cancel_confirmation" yaml:"cancel_confirmation"`
}

// DefaultTemplates returns the default message templates.
func DefaultTemplates() Templates {
	return Templates{
		Acknowledgment:     "Your question was received. {{.Responder}} ({{.ResponderRole}}) is looking into it, please wait.",
		FollowUp:           "Are you still there? A {{.Category}} question from {{.Asker}} is waiting for your answer.",
		HandoffNotice:      "Your question was handed off to {{.Responder}} ({{.ResponderRole}}).",
		EscalatedQuestion:  "{{.Question}}\n\n(escalated from {{.PreviousResponder}}{{if .Reason}}, who declined: {{.Reason}}{{end}})",
		CancelConfirmation: "Your question was cancelled.",
	}
}

// templateData carries the substitution values available to every template.
type templateData struct {
	Asker             string
	Responder         string
	ResponderRole     string
	PreviousResponder string
	Category          string
	Question          string
	Reason            string
	EscalationLevel   int
}

// renderedTemplates holds the parsed form of Templates.
type renderedTemplates struct {
	acknowledgment     *template.Template
	followUp           *template.Template
	handoffNotice      *template.Template
	escalatedQuestion  *template.Template
	cancelConfirmation *template.Template
}

func parseTemplates(t Templates) (*renderedTemplates, error) {
	parse := func(name, text string) (*template.Template, error) {
		tpl, err := template.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid %s template: %w", name, err)
		}
		return tpl, nil
	}

	var (
		r   renderedTemplates
		err error
	)
	if r.acknowledgment, err = parse("acknowledgment", t.Acknowledgment); err != nil {
		return nil, err
	}
	if r.followUp, err = parse("follow_up", t.FollowUp); err != nil {
		return nil, err
	}
	if r.handoffNotice, err = parse("handoff_notice", t.HandoffNotice); err != nil {
		return nil, err
	}
	if r.escalatedQuestion, err = parse("escalated_question", t.EscalatedQuestion); err != nil {
		return nil, err
	}
	if r.cancelConfirmation, err = parse("cancel_confirmation", t.CancelConfirmation); err != nil {
		return nil, err
	}
	return &r, nil
}

func render(tpl *template.Template, data templateData) string {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		// Parse succeeded at construction, so execution can only fail on a
		// template calling a missing method; fall back to the raw question.
		return data.Question
	}
	return buf.String()
}
