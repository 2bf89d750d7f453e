// Package mcpserver публикует операции Amplicore как инструменты MCP.
//
// Сервер работает поверх stdio; stdout занят протоколом, поэтому логи
// процесса должны идти в stderr.
package mcpserver
