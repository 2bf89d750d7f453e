package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Amplicore/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Options задаёт пути окружения FROGS, которые не хранятся в YAML.
type Options struct {
	ToolsDir    string // база для относительных путей скриптов
	BinDir      string // добавляется в начало PATH
	LibDir      string // добавляется в начало PYTHONPATH
	Interpreter string // интерпретатор скриптов (python)
}

// file является структурой YAML файла каталога.
type file struct {
	PipelineOrder []string          `yaml:"pipeline_order"`
	OptionalSteps []string          `yaml:"optional_steps"`
	Tools         []domain.ToolSpec `yaml:"tools"`
}

// Catalog является неизменяемой таблицей инструментов.
type Catalog struct {
	tools         map[string]*domain.ToolSpec
	names         []string
	pipelineOrder []string
	optionalSteps []string
	binDir        string
	libDir        string
}

// Default загружает встроенный каталог FROGS.
func Default(opts Options) (*Catalog, error) {
	return Parse(defaultCatalog, opts)
}

// Load загружает каталог из файла. Пустой путь означает встроенный каталог.
func Load(path string, opts Options) (*Catalog, error) {
	if path == "" {
		return Default(opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, opts)
}

// Parse разбирает и валидирует YAML каталога.
func Parse(data []byte, opts Options) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	if err := validate(&f); err != nil {
		return nil, err
	}

	c := &Catalog{
		tools:         make(map[string]*domain.ToolSpec, len(f.Tools)),
		names:         make([]string, 0, len(f.Tools)),
		pipelineOrder: f.PipelineOrder,
		optionalSteps: f.OptionalSteps,
		binDir:        opts.BinDir,
		libDir:        opts.LibDir,
	}

	for i := range f.Tools {
		tool := f.Tools[i]
		tool.Interpreter = opts.Interpreter
		tool.ScriptPath = tool.Script
		if opts.ToolsDir != "" && !filepath.IsAbs(tool.Script) {
			tool.ScriptPath = filepath.Join(opts.ToolsDir, tool.Script)
		}
		for j := range tool.Params {
			if tool.Params[j].Type == "" {
				tool.Params[j].Type = domain.ParamTypeString
			}
		}
		if tool.PipelineStep == "" {
			tool.PipelineStep = tool.Name
		}

		c.tools[tool.Name] = &tool
		c.names = append(c.names, tool.Name)
	}

	return c, nil
}

// Get возвращает спецификацию инструмента.
func (c *Catalog) Get(name string) (*domain.ToolSpec, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// Names возвращает имена инструментов в порядке каталога.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// List возвращает инструменты, опционально отфильтрованные по категории
// (без учёта регистра).
func (c *Catalog) List(category string) []*domain.ToolSpec {
	var tools []*domain.ToolSpec
	for _, name := range c.names {
		t := c.tools[name]
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		tools = append(tools, t)
	}
	return tools
}

// Categories возвращает отсортированный список категорий.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, t := range c.tools {
		if !seen[t.Category] {
			seen[t.Category] = true
			cats = append(cats, t.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// PipelineOrder возвращает обязательные шаги по порядку.
func (c *Catalog) PipelineOrder() []string {
	return append([]string(nil), c.pipelineOrder...)
}

// OptionalSteps возвращает опциональные шаги.
func (c *Catalog) OptionalSteps() []string {
	return append([]string(nil), c.optionalSteps...)
}

// Steps возвращает определения шагов для нового проекта: обязательные
// с нумерацией от 1, затем опциональные с продолжением нумерации.
func (c *Catalog) Steps() []domain.StepDef {
	defs := make([]domain.StepDef, 0, len(c.pipelineOrder)+len(c.optionalSteps))
	order := 1
	for _, name := range c.pipelineOrder {
		defs = append(defs, domain.StepDef{Name: name, Order: order})
		order++
	}
	for _, name := range c.optionalSteps {
		defs = append(defs, domain.StepDef{Name: name, Order: order, Optional: true})
		order++
	}
	return defs
}

// BinDir возвращает директорию исполняемых файлов FROGS.
func (c *Catalog) BinDir() string { return c.binDir }

// LibDir возвращает директорию библиотек FROGS.
func (c *Catalog) LibDir() string { return c.libDir }
