package engine

import (
	"errors"
	"fmt"

	"github.com/shaiso/Amplicore/internal/domain"
)

// FlowRule связывает выход одного шага с входным параметром другого.
//
// Правило означает: файл, который Source записал под ключом OutputKey,
// подставляется в параметр Param при запуске Target.
type FlowRule struct {
	Source    string
	OutputKey string
	Target    string
	Param     string
}

// String возвращает правило в виде "source.key -> target.param".
func (r FlowRule) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", r.Source, r.OutputKey, r.Target, r.Param)
}

// DefaultFlowRules описывает поток данных pipeline FROGS.
//
// Несколько правил могут заполнять один параметр из разных источников;
// при совпадении побеждает последнее применённое.
var DefaultFlowRules = []FlowRule{
	{"reads_processing", "fasta", "remove_chimera", "input_fasta"},
	{"reads_processing", "biom", "remove_chimera", "input_biom"},

	{"remove_chimera", "fasta", "cluster_filters", "input_fasta"},
	{"remove_chimera", "biom", "cluster_filters", "input_biom"},

	{"cluster_filters", "fasta", "taxonomic_affiliation", "input_fasta"},
	{"cluster_filters", "biom", "taxonomic_affiliation", "input_biom"},

	{"cluster_filters", "fasta", "affiliation_postprocess", "input_fasta"},
	{"cluster_filters", "biom", "affiliation_postprocess", "input_biom"},
	{"taxonomic_affiliation", "biom", "affiliation_postprocess", "input_biom"},

	{"affiliation_postprocess", "fasta", "affiliation_filters", "input_fasta"},
	{"affiliation_postprocess", "biom", "affiliation_filters", "input_biom"},

	{"affiliation_filters", "biom", "affiliation_report", "input_biom"},

	{"affiliation_filters", "fasta", "tree", "input_fasta"},
	{"affiliation_filters", "biom", "tree", "input_biom"},

	{"affiliation_filters", "fasta", "normalisation", "input_fasta"},
	{"affiliation_filters", "biom", "normalisation", "input_biom"},

	{"tree", "tree", "phyloseq_import", "tree_nwk"},
	{"normalisation", "biom", "phyloseq_import", "input_biom"},

	{"phyloseq_import", "rdata", "phyloseq_composition", "phyloseq_rdata"},
	{"phyloseq_import", "rdata", "phyloseq_alpha_diversity", "phyloseq_rdata"},
	{"phyloseq_import", "rdata", "phyloseq_beta_diversity", "phyloseq_rdata"},
	{"phyloseq_import", "rdata", "phyloseq_clustering", "phyloseq_rdata"},
	{"phyloseq_import", "rdata", "phyloseq_structure", "phyloseq_rdata"},
	{"phyloseq_import", "rdata", "phyloseq_manova", "phyloseq_rdata"},
	{"phyloseq_import", "rdata", "deseq2_preprocess", "phyloseq_rdata"},

	{"phyloseq_beta_diversity", "beta_matrix_dir", "phyloseq_clustering", "beta_distance_matrix"},
	{"phyloseq_beta_diversity", "beta_matrix_dir", "phyloseq_structure", "beta_distance_matrix"},
	{"phyloseq_beta_diversity", "beta_matrix_dir", "phyloseq_manova", "beta_distance_matrix"},

	{"deseq2_preprocess", "deseq_rdata", "deseq2_visualisation", "deseq_rdata"},
	{"deseq2_preprocess", "rdata", "deseq2_visualisation", "phyloseq_rdata"},

	{"frogsfunc_placeseqs", "fasta", "frogsfunc_functions", "input_fasta"},
	{"frogsfunc_placeseqs", "biom", "frogsfunc_functions", "input_biom"},
	{"frogsfunc_placeseqs", "tree", "frogsfunc_functions", "input_tree"},
	{"frogsfunc_placeseqs", "marker_copy_tsv", "frogsfunc_functions", "input_marker_copy"},
}

// GenericInput связывает распространённый ключ выхода с типовым именем
// входного параметра.
type GenericInput struct {
	OutputKey string
	Param     string
}

// GenericInputs применяется к параметрам, не заполненным правилами.
var GenericInputs = []GenericInput{
	{"fasta", "input_fasta"},
	{"biom", "input_biom"},
	{"rdata", "phyloseq_rdata"},
	{"tree", "tree_nwk"},
	{"tsv", "input_tsv"},
	{"compo", "input_compo"},
}

// RuleSet является упорядоченным набором правил, сгруппированным по целевому шагу.
type RuleSet struct {
	rules    []FlowRule
	byTarget map[string][]FlowRule
	generic  []GenericInput
}

// NewRuleSet группирует правила по целевому шагу, сохраняя их порядок.
// Если generic равен nil, используется GenericInputs.
func NewRuleSet(rules []FlowRule, generic []GenericInput) *RuleSet {
	if generic == nil {
		generic = GenericInputs
	}

	rs := &RuleSet{
		rules:    append([]FlowRule(nil), rules...),
		byTarget: make(map[string][]FlowRule),
		generic:  append([]GenericInput(nil), generic...),
	}
	for _, r := range rs.rules {
		rs.byTarget[r.Target] = append(rs.byTarget[r.Target], r)
	}
	return rs
}

// ForTarget возвращает правила целевого шага в исходном порядке.
func (rs *RuleSet) ForTarget(step string) []FlowRule {
	return rs.byTarget[step]
}

// Rules возвращает все правила.
func (rs *RuleSet) Rules() []FlowRule {
	return append([]FlowRule(nil), rs.rules...)
}

// Generic возвращает таблицу типовых входов.
func (rs *RuleSet) Generic() []GenericInput {
	return rs.generic
}

// ToolLookup ищет инструмент по имени.
type ToolLookup func(name string) (*domain.ToolSpec, bool)

// ValidateRules проверяет правила по каталогу.
//
// Возвращает все найденные проблемы, объединённые через errors.Join.
// Неверное правило никогда не срабатывает, поэтому проблемы не фатальны.
func ValidateRules(rules []FlowRule, lookup ToolLookup) error {
	var errs []error
	for _, r := range rules {
		src, ok := lookup(r.Source)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", ErrUnknownRuleStep, r.Source, r))
			continue
		}
		tgt, ok := lookup(r.Target)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", ErrUnknownRuleStep, r.Target, r))
			continue
		}
		if !src.HasOutputKey(r.OutputKey) {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", ErrUnknownRuleOutput, r.OutputKey, r))
		}
		if !tgt.IsInputParam(r.Param) {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", ErrUnknownRuleParam, r.Param, r))
		}
	}
	return errors.Join(errs...)
}
