package engine

import (
	"sort"

	"github.com/shaiso/Amplicore/internal/domain"
)

// outputRef является ключом полного индекса: (шаг-источник, ключ выхода).
type outputRef struct {
	step string
	key  string
}

// outputIndex содержит выходы завершённых jobs проекта.
type outputIndex struct {
	full  map[outputRef]string // (шаг, ключ) → путь
	loose map[string]string    // ключ → путь, по всем шагам
}

// buildIndex строит индексы по completed jobs с непустыми выходами.
//
// Jobs просматриваются по возрастанию времени старта, поэтому при
// совпадении ключей побеждает job, запущенный позже.
func buildIndex(jobs []domain.Job) outputIndex {
	done := make([]*domain.Job, 0, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		if j.Status == domain.JobStatusCompleted && len(j.Outputs) > 0 {
			done = append(done, j)
		}
	}

	sort.SliceStable(done, func(a, b int) bool {
		ja, jb := done[a], done[b]
		if !ja.StartedAt.Equal(jb.StartedAt) {
			return ja.StartedAt.Before(jb.StartedAt)
		}
		if !ja.CreatedAt.Equal(jb.CreatedAt) {
			return ja.CreatedAt.Before(jb.CreatedAt)
		}
		return ja.ID.String() < jb.ID.String()
	})

	idx := outputIndex{
		full:  make(map[outputRef]string),
		loose: make(map[string]string),
	}
	for _, j := range done {
		for key, path := range j.Outputs {
			if path == "" {
				continue
			}
			idx.full[outputRef{step: j.StepName, key: key}] = path
			idx.loose[key] = path
		}
	}
	return idx
}

// ResolveInputs вычисляет входные параметры шага, которые можно заполнить
// выходами завершённых jobs.
//
// Сначала применяются правила целевого шага: поиск по (источник, ключ),
// затем по одному ключу среди всех шагов. Оставшиеся входы заполняются
// по таблице типовых входов. Параметры без совпадений просто отсутствуют.
// Функция ничего не изменяет и идемпотентна.
func ResolveInputs(tool *domain.ToolSpec, jobs []domain.Job, rules *RuleSet) map[string]string {
	resolved := make(map[string]string)
	if tool == nil {
		return resolved
	}

	idx := buildIndex(jobs)
	if len(idx.loose) == 0 {
		return resolved
	}

	for _, r := range rules.ForTarget(tool.Name) {
		if !tool.IsInputParam(r.Param) {
			continue
		}
		if path, ok := idx.full[outputRef{step: r.Source, key: r.OutputKey}]; ok {
			resolved[r.Param] = path
		} else if path, ok := idx.loose[r.OutputKey]; ok {
			// Может взять выход другого шага с тем же ключом.
			resolved[r.Param] = path
		}
	}

	for _, param := range tool.InputParams() {
		if _, ok := resolved[param]; ok {
			continue
		}
		for _, g := range rules.Generic() {
			if g.Param != param {
				continue
			}
			if path, ok := idx.loose[g.OutputKey]; ok {
				resolved[param] = path
				break
			}
		}
	}

	return resolved
}
