package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"
)

// emptyCell заменяет пустые значения в таблицах.
const emptyCell = "-"

// Output печатает результаты команд. Данные идут в w (таблица, JSON или
// текст лога/отчёта), статусные сообщения в errW, чтобы `--json | jq`
// получал чистый поток.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo нужен тестам и встраиванию.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Print выбирает между таблицей и JSON.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table печатает колонки через tabwriter, подчёркивая заголовок.
// Пустые ячейки (нет шага, нет exit code) показываются как "-".
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	rule := make([]string, len(headers))
	for i, h := range headers {
		rule[i] = strings.Repeat("-", len(h))
	}
	writeRow(tw, headers)
	writeRow(tw, rule)

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if c == "" {
				c = emptyCell
			}
			cells[i] = c
		}
		writeRow(tw, cells)
	}
}

func writeRow(w io.Writer, cells []string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

// JSON печатает v с отступами. Пустой список jobs или проектов выводится
// как [], а не null; пути и Markdown не экранируются.
func (o *Output) JSON(v any) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.IsNil() {
		v = []any{}
	}
	enc := json.NewEncoder(o.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Text печатает лог или отчёт, завершая его переводом строки.
func (o *Output) Text(s string) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	io.WriteString(o.w, s)
}

func (o *Output) Line(s string) {
	fmt.Fprintln(o.w, s)
}

func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
