// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (service, лимит запусков, logger)
//   - routes.go           — chi маршруты /api/v1
//   - middleware.go       — middleware (recovery, logging, метрики, rate limit)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — тела запросов
//   - tool_handler.go     — обработчики для /tools
//   - project_handler.go  — обработчики для /projects и pipeline проекта
//   - job_handler.go      — обработчики для /jobs
//
// API предоставляет REST endpoints для запуска инструментов FROGS,
// ведения проектов и чтения результатов jobs.
package api
