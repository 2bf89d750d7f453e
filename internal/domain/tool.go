package domain

// ParamType является типом параметра инструмента.
type ParamType string

const (
	ParamTypeString ParamType = "str"
	ParamTypeInt    ParamType = "int"
	ParamTypeFloat  ParamType = "float"
	ParamTypeBool   ParamType = "bool"
	ParamTypeList   ParamType = "list"
)

// IsValid проверяет, что тип известен.
func (t ParamType) IsValid() bool {
	switch t {
	case ParamTypeString, ParamTypeInt, ParamTypeFloat, ParamTypeBool, ParamTypeList:
		return true
	default:
		return false
	}
}

// ParamSpec описывает один параметр командной строки инструмента.
type ParamSpec struct {
	// Name является ключом в карте параметров (snake_case).
	Name string `yaml:"name" json:"name"`

	// Flag является токеном CLI, например "--input-fasta".
	// Пуст для позиционного параметра.
	Flag string `yaml:"flag" json:"flag,omitempty"`

	Type     ParamType `yaml:"type" json:"type"`
	Required bool      `yaml:"required" json:"required"`

	// Default применяется сборщиком команды только к выходным файлам.
	Default any `yaml:"default" json:"default,omitempty"`

	InputFile  bool `yaml:"input_file" json:"input_file"`
	OutputFile bool `yaml:"output_file" json:"output_file"`

	// OutputKey классифицирует выходной файл ("fasta", "biom", "tree").
	OutputKey string `yaml:"output_key" json:"output_key,omitempty"`

	Help string `yaml:"help" json:"help,omitempty"`
}

// ToolSpec описывает инструмент каталога.
type ToolSpec struct {
	Name        string `yaml:"name" json:"name"`
	Script      string `yaml:"script" json:"script"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`

	// PipelineStep является именем шага pipeline, который выполняет инструмент.
	PipelineStep string `yaml:"pipeline_step" json:"pipeline_step,omitempty"`
	Optional     bool   `yaml:"optional" json:"is_optional"`

	// Positional является именем ведущего позиционного параметра (subparser).
	Positional string `yaml:"positional" json:"positional,omitempty"`

	Params []ParamSpec `yaml:"params" json:"params"`

	// Interpreter и ScriptPath заполняются каталогом при загрузке.
	Interpreter string `yaml:"-" json:"interpreter,omitempty"`
	ScriptPath  string `yaml:"-" json:"script_path"`
}

// Param возвращает параметр по имени.
func (t *ToolSpec) Param(name string) (*ParamSpec, bool) {
	for i := range t.Params {
		if t.Params[i].Name == name {
			return &t.Params[i], true
		}
	}
	return nil, false
}

// InputParams возвращает имена входных файловых параметров в порядке объявления.
func (t *ToolSpec) InputParams() []string {
	var names []string
	for _, p := range t.Params {
		if p.InputFile {
			names = append(names, p.Name)
		}
	}
	return names
}

// IsInputParam проверяет, является ли параметр входным файлом.
func (t *ToolSpec) IsInputParam(name string) bool {
	p, ok := t.Param(name)
	return ok && p.InputFile
}

// HasOutputKey проверяет, объявляет ли инструмент выход с таким ключом.
func (t *ToolSpec) HasOutputKey(key string) bool {
	for _, p := range t.Params {
		if p.OutputFile && p.OutputKey == key {
			return true
		}
	}
	return false
}

// Executable возвращает префикс команды: интерпретатор и путь к скрипту.
func (t *ToolSpec) Executable() []string {
	if t.Interpreter == "" {
		return []string{t.ScriptPath}
	}
	return []string{t.Interpreter, t.ScriptPath}
}
