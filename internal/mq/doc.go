// Package mq публикует события жизненного цикла jobs в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с переподключением
//   - topology.go   — обменник amplicore.jobs и очередь jobs.events
//   - publisher.go  — публикация событий через circuit breaker
//   - consumer.go   — чтение событий (команда job watch)
//
// Брокер необязателен: без RABBITMQ_URL события не публикуются.
package mq
