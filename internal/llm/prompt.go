package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jiqing426/video-ai/internal/extractor"
)

const maxListedElements = 5

const systemPromptTemplate = `You are an expert web automation specialist. Your job is to generate precise Playwright actions to accomplish user tasks on websites.

IMPORTANT RULES:
1. Generate realistic, executable actions based on the actual page structure
2. Use multiple selector strategies for reliability: data-testid > semantic tags > text content > CSS classes
3. Always include reasoning for each action
4. Focus on the user's specific task
5. Generate 3-8 meaningful actions (not just basic navigation)

Page Analysis:
%s

Available Action Types:
- click: Click on buttons, links, or interactive elements
- fill: Fill input fields with realistic data
- select: Select options from dropdowns
- wait: Wait for elements or page loads
- scroll: Scroll to reveal content
- hover: Hover over elements to reveal menus
- screenshot: Capture important moments

Selector Strategy Priority:
1. data-testid, data-test attributes (95%% reliability)
2. Semantic HTML tags with specific attributes (85%% reliability)
3. Text content matching (70%% reliability)
4. CSS classes and IDs (50%% reliability)
5. Position-based selectors (30%% reliability)

Put several comma separated selectors into "selector", most reliable first.
Use Playwright syntax (:has-text("..."), text="..."), never :contains().

Return a JSON object {"actions": [...]} where every action has this structure:
{
  "type": "action_type",
  "selector": "css_selector_with_fallbacks",
  "value": "input_value_if_needed",
  "timeout": 5000,
  "description": "Human readable description",
  "reasoning": "Why this action is needed"
}`

// SystemPrompt embeds the page snapshot into the planner instructions.
func SystemPrompt(snapshot *extractor.PageSnapshot) string {
	analysis := "{}"
	if snapshot != nil {
		if data, err := json.MarshalIndent(snapshot, "", "  "); err == nil {
			analysis = string(data)
		}
	}
	return fmt.Sprintf(systemPromptTemplate, analysis)
}

// UserPrompt describes the task. Hints are only included for the mode that
// carries them.
func UserPrompt(req PlanRequest) string {
	mode := req.Mode
	if mode == "" {
		mode = ModeURLOnly
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Website: %s\nTask: %s\nMode: %s\n\n", req.URL, req.Task, mode)
	b.WriteString("Generate specific actions to accomplish this task on the given website.")

	if mode == ModeURLPrompt && req.Workflow != "" {
		fmt.Fprintf(&b, "\n\nWorkflow Hint: %s", req.Workflow)
	}
	if mode == ModeURLPrompt && req.KeyElements != "" {
		fmt.Fprintf(&b, "\n\nKey Elements: %s", req.KeyElements)
	}
	if mode == ModeCodeAware && req.Repository != "" {
		fmt.Fprintf(&b, "\n\nGitHub Repository: %s\nPlease analyze the codebase structure to better understand the UI components and their selectors.", req.Repository)
	}

	if s := req.Snapshot; s != nil {
		buttons, inputs, links, forms := s.Counts()
		fmt.Fprintf(&b, "\n\nDetected Page Elements:\n- Buttons: %d found\n- Inputs: %d found\n- Links: %d found\n- Forms: %d found",
			buttons, inputs, links, forms)

		if labels := topLabels(s.Buttons, buttonLabel); len(labels) > 0 {
			fmt.Fprintf(&b, "\n\nAvailable Buttons: %s", strings.Join(labels, ", "))
		}
		if labels := topLabels(s.Inputs, inputLabel); len(labels) > 0 {
			fmt.Fprintf(&b, "\n\nAvailable Inputs: %s", strings.Join(labels, ", "))
		}
	}

	return b.String()
}

func buttonLabel(d extractor.ElementDescriptor) string {
	return firstNonEmpty(d.Text, d.ID, d.ClassName)
}

func inputLabel(d extractor.ElementDescriptor) string {
	return firstNonEmpty(d.Placeholder, d.Name, d.InputType)
}

func topLabels(elements []extractor.ElementDescriptor, label func(extractor.ElementDescriptor) string) []string {
	var out []string
	for i, d := range elements {
		if i == maxListedElements {
			break
		}
		if l := label(d); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
