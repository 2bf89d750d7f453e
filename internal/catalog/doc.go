// Package catalog загружает таблицу инструментов FROGS.
//
// Каталог описывает для каждого инструмента:
//   - путь к скрипту относительно FROGS_TOOLS_DIR
//   - упорядоченный список параметров (флаг, тип, default, вход/выход)
//   - ключи классификации выходных файлов
//
// Встроенный catalog.yaml можно заменить через CATALOG_PATH.
package catalog
