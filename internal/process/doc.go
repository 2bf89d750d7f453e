// Package process запускает внешние инструменты и адресует их по pid.
//
// Процесс стартует в рабочей директории job со stdout и stderr,
// перенаправленными в файлы. Handle позволяет без блокировки узнать,
// завершился ли процесс. Сигналы отправляются по pid через kill(2).
package process
