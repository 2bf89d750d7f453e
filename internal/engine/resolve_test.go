package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Amplicore/internal/domain"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func completedJob(step string, startOffset time.Duration, outputs map[string]string) domain.Job {
	return domain.Job{
		ID:        uuid.New(),
		ProjectID: "p1",
		ToolName:  step,
		StepName:  step,
		Status:    domain.JobStatusCompleted,
		StartedAt: base.Add(startOffset),
		CreatedAt: base.Add(startOffset),
		Outputs:   outputs,
	}
}

func stepBTool() *domain.ToolSpec {
	return &domain.ToolSpec{
		Name: "stepB",
		Params: []domain.ParamSpec{
			{Name: "input_fasta", Flag: "--input-fasta", InputFile: true, Required: true},
			{Name: "input_biom", Flag: "--input-biom", InputFile: true},
			{Name: "threshold", Flag: "--threshold"},
		},
	}
}

func TestResolveInputs_RuleMatch(t *testing.T) {
	rules := NewRuleSet([]FlowRule{{"stepA", "fasta", "stepB", "input_fasta"}}, []GenericInput{})
	jobs := []domain.Job{
		completedJob("stepA", 0, map[string]string{"fasta": "/ws/p1/j1/a.fasta"}),
	}

	got := ResolveInputs(stepBTool(), jobs, rules)
	want := map[string]string{"input_fasta": "/ws/p1/j1/a.fasta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveInputs_LooseFallback(t *testing.T) {
	rules := NewRuleSet([]FlowRule{{"stepA", "fasta", "stepB", "input_fasta"}}, []GenericInput{})
	jobs := []domain.Job{
		completedJob("other", 0, map[string]string{"fasta": "/ws/other.fasta"}),
	}

	got := ResolveInputs(stepBTool(), jobs, rules)
	if got["input_fasta"] != "/ws/other.fasta" {
		t.Errorf("expected loose fallback, got %v", got)
	}
}

func TestResolveInputs_QualifiedBeatsLoose(t *testing.T) {
	rules := NewRuleSet([]FlowRule{{"stepA", "fasta", "stepB", "input_fasta"}}, nil)
	jobs := []domain.Job{
		completedJob("stepA", 0, map[string]string{"fasta": "/ws/a.fasta"}),
		completedJob("other", time.Minute, map[string]string{"fasta": "/ws/other.fasta"}),
	}

	got := ResolveInputs(stepBTool(), jobs, rules)
	if got["input_fasta"] != "/ws/a.fasta" {
		t.Errorf("qualified match should win, got %v", got)
	}
}

func TestResolveInputs_LaterStartWins(t *testing.T) {
	rules := NewRuleSet(nil, nil)
	early := completedJob("x", 0, map[string]string{"biom": "/ws/early.biom"})
	late := completedJob("y", time.Hour, map[string]string{"biom": "/ws/late.biom"})

	// Порядок входного списка не важен, важно время старта.
	for _, jobs := range [][]domain.Job{{early, late}, {late, early}} {
		got := ResolveInputs(stepBTool(), jobs, rules)
		if got["input_biom"] != "/ws/late.biom" {
			t.Errorf("expected later-started job to win, got %v", got)
		}
	}
}

func TestResolveInputs_LastRuleOverwrites(t *testing.T) {
	rules := NewRuleSet([]FlowRule{
		{"cluster", "biom", "stepB", "input_biom"},
		{"affiliation", "biom", "stepB", "input_biom"},
	}, nil)
	jobs := []domain.Job{
		completedJob("affiliation", 0, map[string]string{"biom": "/ws/affi.biom"}),
		completedJob("cluster", time.Minute, map[string]string{"biom": "/ws/cluster.biom"}),
	}

	got := ResolveInputs(stepBTool(), jobs, rules)
	if got["input_biom"] != "/ws/affi.biom" {
		t.Errorf("last matching rule should win, got %v", got)
	}
}

func TestResolveInputs_IgnoresUnfinishedAndEmpty(t *testing.T) {
	rules := NewRuleSet(nil, nil)

	failed := completedJob("stepA", 0, map[string]string{"fasta": "/ws/failed.fasta"})
	failed.Status = domain.JobStatusFailed
	running := completedJob("stepA", time.Minute, map[string]string{"fasta": "/ws/running.fasta"})
	running.Status = domain.JobStatusRunning
	empty := completedJob("stepA", 2*time.Minute, nil)

	got := ResolveInputs(stepBTool(), []domain.Job{failed, running, empty}, rules)
	if len(got) != 0 {
		t.Errorf("expected nothing resolved, got %v", got)
	}
}

func TestResolveInputs_NonInputParamsSkipped(t *testing.T) {
	rules := NewRuleSet([]FlowRule{{"stepA", "fasta", "stepB", "threshold"}}, []GenericInput{})
	jobs := []domain.Job{completedJob("stepA", 0, map[string]string{"fasta": "/ws/a.fasta"})}

	got := ResolveInputs(stepBTool(), jobs, rules)
	if _, ok := got["threshold"]; ok {
		t.Error("rule targeting a non-input parameter must be ignored")
	}
}

func TestResolveInputs_Idempotent(t *testing.T) {
	rules := NewRuleSet(DefaultFlowRules, nil)
	jobs := []domain.Job{
		completedJob("stepA", 0, map[string]string{"fasta": "/ws/a.fasta", "biom": "/ws/a.biom"}),
		completedJob("stepC", time.Minute, map[string]string{"biom": "/ws/c.biom"}),
	}

	first := ResolveInputs(stepBTool(), jobs, rules)
	second := ResolveInputs(stepBTool(), jobs, rules)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %v vs %v", first, second)
	}
	if first["input_biom"] != "/ws/c.biom" {
		t.Errorf("generic fallback should use latest biom, got %v", first)
	}
}

func TestResolveInputs_NilTool(t *testing.T) {
	if got := ResolveInputs(nil, nil, NewRuleSet(nil, nil)); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestRuleSet_ForTarget(t *testing.T) {
	rs := NewRuleSet(DefaultFlowRules, nil)

	rules := rs.ForTarget("affiliation_postprocess")
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	if rules[2].Source != "taxonomic_affiliation" {
		t.Errorf("rule order not preserved: %v", rules)
	}
	if len(rs.ForTarget("reads_processing")) != 0 {
		t.Error("first step should have no incoming rules")
	}
}

func TestValidateRules(t *testing.T) {
	tools := map[string]*domain.ToolSpec{
		"stepA": {
			Name:   "stepA",
			Params: []domain.ParamSpec{{Name: "out", Flag: "--out", OutputFile: true, OutputKey: "fasta"}},
		},
		"stepB": stepBTool(),
	}
	lookup := func(name string) (*domain.ToolSpec, bool) {
		t, ok := tools[name]
		return t, ok
	}

	if err := ValidateRules([]FlowRule{{"stepA", "fasta", "stepB", "input_fasta"}}, lookup); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateRules([]FlowRule{
		{"missing", "fasta", "stepB", "input_fasta"},
		{"stepA", "biom", "stepB", "input_biom"},
		{"stepA", "fasta", "stepB", "threshold"},
	}, lookup)
	if !errors.Is(err, ErrUnknownRuleStep) {
		t.Errorf("expected ErrUnknownRuleStep in %v", err)
	}
	if !errors.Is(err, ErrUnknownRuleOutput) {
		t.Errorf("expected ErrUnknownRuleOutput in %v", err)
	}
	if !errors.Is(err, ErrUnknownRuleParam) {
		t.Errorf("expected ErrUnknownRuleParam in %v", err)
	}
}
