package agent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/extractor"
)

// syntheticGroup adds elements when the task mentions one of its keywords.
type syntheticGroup struct {
	keywords []string
	buttons  []extractor.ElementDescriptor
	inputs   []extractor.ElementDescriptor
}

func button(text, id, class string) extractor.ElementDescriptor {
	return extractor.ElementDescriptor{Role: extractor.RoleButton, Tag: "button", Text: text, ID: id, ClassName: class, Visible: true}
}

func input(typ, placeholder, name string) extractor.ElementDescriptor {
	return extractor.ElementDescriptor{Role: extractor.RoleInput, Tag: "input", InputType: typ, Placeholder: placeholder, Name: name, Visible: true}
}

var syntheticGroups = []syntheticGroup{
	{
		keywords: []string{"login", "登录"},
		buttons:  []extractor.ElementDescriptor{button("Login", "login-btn", "btn btn-primary"), button("Sign In", "signin-btn", "btn btn-secondary")},
		inputs:   []extractor.ElementDescriptor{input("email", "Email", "email"), input("password", "Password", "password")},
	},
	{
		keywords: []string{"search", "搜索"},
		buttons:  []extractor.ElementDescriptor{button("Search", "search-btn", "btn btn-search"), button("Google Search", "google-search", "btn")},
		inputs:   []extractor.ElementDescriptor{input("search", "Search...", "q")},
	},
	{
		keywords: []string{"submit", "提交", "form"},
		buttons:  []extractor.ElementDescriptor{button("Submit", "submit-btn", "btn btn-primary"), button("Send", "send-btn", "btn btn-success")},
	},
	{
		keywords: []string{"form", "表单"},
		inputs:   []extractor.ElementDescriptor{input("text", "Name", "name"), input("email", "Email", "email"), input("tel", "Phone", "phone")},
	},
}

var defaultButtons = []extractor.ElementDescriptor{
	button("Continue", "continue-btn", "btn btn-primary"),
	button("Next", "next-btn", "btn btn-secondary"),
}

// SyntheticSnapshot describes the page a task most likely targets. It is
// used when no browser is available so the planner still has something to
// plan against.
func SyntheticSnapshot(url, task string) *extractor.PageSnapshot {
	taskLower := strings.ToLower(task)
	snap := &extractor.PageSnapshot{
		Title: url + " - AI Test Analysis",
		URL:   url,
		Links: []extractor.ElementDescriptor{
			{Role: extractor.RoleLink, Tag: "a", Text: "Home", Href: "/", Visible: true},
			{Role: extractor.RoleLink, Tag: "a", Text: "About", Href: "/about", Visible: true},
			{Role: extractor.RoleLink, Tag: "a", Text: "Contact", Href: "/contact", Visible: true},
		},
	}

	for _, g := range syntheticGroups {
		if !containsAny(taskLower, g.keywords) {
			continue
		}
		snap.Buttons = append(snap.Buttons, g.buttons...)
		snap.Inputs = append(snap.Inputs, g.inputs...)
	}
	if len(snap.Buttons) == 0 {
		snap.Buttons = append(snap.Buttons, defaultButtons...)
	}
	if containsAny(taskLower, []string{"login", "form", "submit"}) {
		snap.Forms = []extractor.ElementDescriptor{{
			Role: extractor.RoleForm, Tag: "form", ID: "main-form", ClassName: "form",
			Action: "/submit", Method: "post", Visible: true,
		}}
	}

	for _, group := range [][]extractor.ElementDescriptor{snap.Buttons, snap.Inputs, snap.Links, snap.Forms} {
		for i := range group {
			group[i].Index = i
		}
	}
	for _, in := range snap.Inputs {
		switch {
		case in.InputType == "password":
			snap.HasLoginForm = true
		case in.InputType == "search", strings.Contains(strings.ToLower(in.Placeholder), "search"):
			snap.HasSearchBox = true
		}
	}
	return snap
}

// Simulate plans against a synthetic page without touching a browser. Every
// step stays pending because nothing was executed.
func (e *Engine) Simulate(ctx context.Context, req Request, caps capability.Report) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	id := uuid.NewString()
	snap := SyntheticSnapshot(req.URL, req.Task)

	plan := e.choosePlan(ctx, e.planRequest(id, req, snap))

	log := make(ExecutionLog, len(plan.Actions))
	for i, a := range plan.Actions {
		log[i] = entryFor(i, &ExecutionStep{Action: a, Status: StatusPending}, 0)
	}

	res := &Result{
		Type:         ResultSimulation,
		SessionID:    id,
		Request:      req,
		Capabilities: caps,
		Plan:         plan.Actions,
		PlanSource:   plan.Source,
		Log:          log,
		Page:         summarize(snap),
		StartedAt:    start,
		Duration:     time.Since(start),
	}
	if plan.Cause != nil {
		res.PlannerError = errs.KindOf(plan.Cause)
	}
	e.maskValues(res)

	e.log.Info("Запись выполнена в режиме симуляции",
		zap.String("session_id", id),
		zap.String("host", caps.Host),
		zap.Int("actions", len(plan.Actions)),
		zap.String("plan_source", string(plan.Source)))

	e.metrics.ObserveRecording(ResultSimulation, res.ErrorKind, res.Duration)
	e.deliver(ctx, res)
	return res, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
