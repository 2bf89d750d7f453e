package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

const (
	reportMaxChars = 8000
	tsvHeadLines   = 50
	htmlOutputKey  = "html"
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlock  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlTag     = regexp.MustCompile(`<[^>]+>`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// ReadLog возвращает хвост первого непустого лога: log, stderr, stdout.
func (s *Service) ReadLog(ctx context.Context, id string, tail int) (string, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return "", err
	}
	if tail <= 0 {
		tail = defaultLogTail
	}

	candidates := []struct{ key, path string }{
		{"log_file", job.LogPath},
		{"stderr_file", job.StderrPath},
		{"stdout_file", job.StdoutPath},
	}
	for _, c := range candidates {
		if !isFile(c.path) {
			continue
		}
		content, err := readTail(c.path, tail)
		if err != nil {
			s.logger.Warn("failed to read job log", "job_id", job.ID, "path", c.path, "error", err)
			continue
		}
		if strings.TrimSpace(content) != "" {
			return fmt.Sprintf("[%s: %s]\n\n%s", c.key, c.path, content), nil
		}
	}

	return fmt.Sprintf("No log content found for job '%s' (working_dir: %s).", job.ID, job.WorkingDir), nil
}

// ReadReport возвращает текст HTML отчёта job или начало первого TSV выхода.
func (s *Service) ReadReport(ctx context.Context, id string) (string, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return "", err
	}

	if path := job.Outputs[htmlOutputKey]; isFile(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read html report: %w", err)
		}
		return fmt.Sprintf("[HTML report: %s]\n\n%s", path, truncate(stripHTML(string(data)), reportMaxChars)), nil
	}

	keys := make([]string, 0, len(job.Outputs))
	for k := range job.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := job.Outputs[k]
		if !strings.HasSuffix(path, ".tsv") || !isFile(path) {
			continue
		}
		head, err := readHead(path, tsvHeadLines)
		if err != nil {
			return "", fmt.Errorf("read tsv report: %w", err)
		}
		return fmt.Sprintf("[TSV: %s]\n\n%s", path, head), nil
	}

	return fmt.Sprintf("No report file found for job '%s'.\nAvailable outputs: [%s]", job.ID, strings.Join(keys, ", ")), nil
}

// stripHTML убирает скрипты, стили и теги, схлопывая пробелы.
func stripHTML(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = styleBlock.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// truncate обрезает строку до n символов.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// readTail возвращает последние n строк файла. Отсутствующий файл даёт "".
func readTail(path string, n int) (string, error) {
	if !isFile(path) {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if len(ring) == n {
				ring = ring[1:]
			}
			ring = append(ring, line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.Join(ring, ""), nil
}

// readHead возвращает первые n строк файла.
func readHead(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	r := bufio.NewReader(f)
	for i := 0; i < n; i++ {
		line, err := r.ReadString('\n')
		b.WriteString(line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
