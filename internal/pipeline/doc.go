// Package pipeline связывает шаги проекта с хранилищем и каталогом.
//
// Пакет отвечает на три вопроса о проекте: какие входы следующего шага
// можно взять из готовых выходов, в каком состоянии pipeline и что
// запускать дальше.
package pipeline
