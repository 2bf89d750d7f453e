package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/Amplicore/internal/domain"
)

// Recommendation описывает следующий шаг pipeline проекта.
type Recommendation struct {
	Project *domain.Project `json:"project"`
	Summary *Summary        `json:"summary"`

	// NextStep пуст, если основной pipeline выполнен.
	NextStep string `json:"next_step,omitempty"`

	// Resolved — входы NextStep, найденные среди выходов проекта.
	Resolved map[string]string `json:"resolved_inputs,omitempty"`

	// Missing — обязательные параметры NextStep, которые надо передать.
	Missing []domain.ParamSpec `json:"missing_params,omitempty"`

	// Optional — опциональные шаги в статусе pending, когда pipeline выполнен.
	Optional []string `json:"optional_steps,omitempty"`
}

// Complete сообщает, что обязательные шаги выполнены.
func (r *Recommendation) Complete() bool {
	return r.NextStep == ""
}

// Recommend определяет следующий шаг и собирает для него входы.
func (p *Pipeline) Recommend(ctx context.Context, projectID string) (*Recommendation, error) {
	project, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, storeError("get project", projectID, err)
	}

	steps, err := p.store.ListSteps(ctx, projectID)
	if err != nil {
		return nil, domain.UnavailableError("list steps", err)
	}

	rec := &Recommendation{
		Project: project,
		Summary: summarize(projectID, steps, p.catalog.PipelineOrder()),
	}
	if len(steps) == 0 {
		return rec, nil
	}
	rec.NextStep = rec.Summary.NextStep

	if rec.Complete() {
		status := make(map[string]domain.StepStatus, len(steps))
		for _, st := range steps {
			status[st.Name] = st.Status
		}
		for _, name := range p.catalog.OptionalSteps() {
			if s, ok := status[name]; !ok || s == domain.StepStatusPending {
				rec.Optional = append(rec.Optional, name)
			}
		}
		return rec, nil
	}

	rec.Resolved, err = p.ResolveInputs(ctx, projectID, rec.NextStep)
	if err != nil {
		return nil, err
	}

	if tool, ok := p.catalog.Get(rec.NextStep); ok {
		for _, param := range tool.Params {
			if !param.Required || param.OutputFile {
				continue
			}
			if _, ok := rec.Resolved[param.Name]; ok {
				continue
			}
			rec.Missing = append(rec.Missing, param)
		}
	}
	return rec, nil
}

// Markdown рендерит рекомендацию для человека или LLM-клиента.
func (r *Recommendation) Markdown() string {
	var b strings.Builder

	if len(r.Summary.Steps) == 0 {
		fmt.Fprintf(&b, "## Project: %s\n\n", r.Project.Name)
		b.WriteString("No pipeline steps initialized. Create the project again to set up the pipeline.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "## Pipeline Status: %s\n\n", r.Project.Name)
	b.WriteString("| Step | Order | Status | Optional |\n")
	b.WriteString("|------|-------|--------|----------|\n")

	steps := append([]domain.PipelineStep(nil), r.Summary.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	for _, st := range steps {
		opt := "No"
		if st.Optional {
			opt = "Yes"
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", st.Name, st.Order, st.Status, opt)
	}
	b.WriteString("\n")

	if r.Complete() {
		b.WriteString("### Main pipeline complete!\n\n")
		b.WriteString("Consider running optional analysis steps:\n")
		for _, name := range r.Optional {
			fmt.Fprintf(&b, "  - `%s`\n", name)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "### Next recommended step: `%s`\n\n", r.NextStep)

	if len(r.Resolved) > 0 {
		b.WriteString("**Auto-resolved inputs:**\n")
		for _, name := range sortedKeys(r.Resolved) {
			fmt.Fprintf(&b, "  - `%s` = `%s`\n", name, r.Resolved[name])
		}
		b.WriteString("\n")
	}

	if len(r.Missing) > 0 {
		b.WriteString("**Still required (must provide):**\n")
		for _, p := range r.Missing {
			line := fmt.Sprintf("  - `%s`", p.Name)
			if p.Flag != "" {
				line += fmt.Sprintf(" (%s)", p.Flag)
			}
			if p.Help != "" {
				line += ": " + p.Help
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	example := make(map[string]string, len(r.Resolved)+len(r.Missing))
	for k, v := range r.Resolved {
		example[k] = v
	}
	for _, p := range r.Missing {
		example[p.Name] = "<" + p.Name + ">"
	}
	var params bytes.Buffer
	enc := json.NewEncoder(&params)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	_ = enc.Encode(example)

	b.WriteString("**Submit with:**\n")
	b.WriteString("```\n")
	b.WriteString("submit_pipeline_step(\n")
	fmt.Fprintf(&b, "  project_id=%q,\n", r.Project.ID)
	fmt.Fprintf(&b, "  step_name=%q,\n", r.NextStep)
	fmt.Fprintf(&b, "  params=%s\n", bytes.TrimSpace(params.Bytes()))
	b.WriteString(")\n```\n")

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
