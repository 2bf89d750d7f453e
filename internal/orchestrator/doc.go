// Package orchestrator запускает инструменты как фоновые процессы и следит
// за их завершением.
//
// Состав:
//   - Launcher — проверка параметров, сборка команды, запуск процесса,
//     запись job в хранилище; отмена jobs сигналом SIGTERM
//   - Monitor — единственный фоновый цикл, который опрашивает живые
//     процессы и фиксирует их финальный статус и выходы
//
// Реестр живых jobs принадлежит Monitor и защищён одним мьютексом,
// который используют запуск, опрос и отмена.
//
// При старте Monitor сверяет хранилище: jobs в статусе running, процессы
// которых пережили рестарт, снова отслеживаются, остальные помечаются
// orphaned.
package orchestrator
