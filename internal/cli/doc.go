// Package cli реализует инструмент командной строки Amplicore.
//
// # Обзор
//
// CLI — клиентская утилита для Amplicore API. Работает через HTTP и не
// импортирует слой API или сервисы: типы ответов продублированы в client.go.
// Исключение — job watch, который читает события jobs напрямую из RabbitMQ
// через пакет mq.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Amplicore API. Инкапсулирует запросы, разбор конвертов
// ответа (data, data+total, error) и текстовые ответы (лог, отчёт, Markdown).
//
//	client := cli.NewClient("http://localhost:8080")
//	projects, err := client.ListProjects()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr:
// amplicore job list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - project: list, create, show, set-metadata
//   - pipeline: status, next, inputs, run
//   - job: list, submit, show, results, log, report, cancel, watch
//   - tool: list, help
//
// Каждая группа создаётся фабричной функцией (NewProjectCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
//
// Параметры инструментов задаются как --param KEY=VALUE (значение,
// читаемое как JSON, передаётся типизированным) или --params-json.
package cli
