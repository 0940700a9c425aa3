// Package docs Seoul Location Services API.
//
// Сервис поиска городских объектов Сеула рядом с точкой: культурные события,
// библиотеки, культурные пространства, объекты будущего наследия и
// общественные площадки с бронированием.
//
// Основные возможности:
// - Поиск по радиусу с сортировкой по расстоянию
// - Фильтр и группировка по категориям
// - Кеширование выдачи в Redis/Valkey с инвалидацией по событиям
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs
