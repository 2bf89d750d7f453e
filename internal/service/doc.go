// Package service содержит операции, общие для HTTP API и MCP сервера.
//
// Service собирает ответы из хранилища, каталога, launcher и pipeline.
// Ошибки возвращаются из таксономии domain и ErrInvalidArgument; каждый
// транспорт сам переводит их в свой формат.
package service
