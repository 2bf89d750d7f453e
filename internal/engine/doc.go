// Package engine содержит чистую логику оркестратора без I/O.
//
// Включает:
//   - command.go: сборка вектора аргументов и карты выходов инструмента
//   - rules.go: таблица правил потока данных между шагами
//   - resolve.go: вычисление входов шага по выходам завершённых jobs
//
// Пакет не обращается к хранилищу и файловой системе; данные ему
// передают orchestrator и pipeline.
package engine
