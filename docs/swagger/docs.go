// Package swagger registers the OpenAPI document served at /swagger/*.
// Regenerate with: swag init -g cmd/api/main.go -o docs/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/api/v1/services/nearby": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "Find services near a point",
                "parameters": [
                    {"type": "number", "description": "Широта центра", "name": "lat", "in": "query", "required": true},
                    {"type": "number", "description": "Долгота центра", "name": "lon", "in": "query", "required": true},
                    {"type": "integer", "default": 2000, "minimum": 100, "maximum": 10000, "description": "Радиус в метрах", "name": "radius", "in": "query"},
                    {"type": "string", "description": "Категория", "name": "category", "in": "query"},
                    {"type": "integer", "default": 50, "minimum": 1, "maximum": 200, "description": "Максимум результатов", "name": "limit", "in": "query"},
                    {"enum": ["category"], "type": "string", "description": "Группировка результатов", "name": "group_by", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.LocationSearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/services/categories/list": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "List service categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CategoryListResponse"}}
                }
            }
        },
        "/api/v1/services/{category}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "Find services of one category",
                "parameters": [
                    {"type": "string", "description": "Категория", "name": "category", "in": "path", "required": true},
                    {"type": "number", "description": "Широта центра", "name": "lat", "in": "query", "required": true},
                    {"type": "number", "description": "Долгота центра", "name": "lon", "in": "query", "required": true},
                    {"type": "integer", "default": 2000, "description": "Радиус в метрах", "name": "radius", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Максимум результатов", "name": "limit", "in": "query"},
                    {"enum": ["distance", "name"], "type": "string", "default": "distance", "description": "Сортировка", "name": "sort_by", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.LocationSearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/cache/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "Cache statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CacheStatsResponse"}}
                }
            }
        },
        "/api/v1/cache": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "Invalidate cache entries",
                "parameters": [
                    {"type": "string", "description": "Glob-шаблон ключей", "name": "pattern", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CacheInvalidateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/cache/{category}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "Invalidate one category",
                "parameters": [
                    {"type": "string", "description": "Категория", "name": "category", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CacheInvalidateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.GeoPoint": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "dto.LocationSearchResponse": {
            "type": "object",
            "properties": {
                "services": {"type": "array", "items": {"type": "object", "additionalProperties": true}},
                "total": {"type": "integer"},
                "center": {"$ref": "#/definitions/domain.GeoPoint"},
                "radius_meters": {"type": "integer"},
                "category": {"type": "string"},
                "sort_by": {"type": "string"},
                "cache_hit": {"type": "boolean"},
                "execution_time": {"type": "number"},
                "request_id": {"type": "string"},
                "summary": {"type": "object", "additionalProperties": true}
            }
        },
        "dto.CategoryListResponse": {
            "type": "object",
            "properties": {
                "categories": {"type": "array", "items": {"type": "object", "additionalProperties": true}},
                "total": {"type": "integer"}
            }
        },
        "dto.CacheStatsResponse": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "hits": {"type": "integer"},
                "misses": {"type": "integer"},
                "hit_rate_percent": {"type": "number"},
                "ttl_seconds": {"type": "integer"},
                "key_pattern": {"type": "string"}
            }
        },
        "dto.CacheInvalidateResponse": {
            "type": "object",
            "properties": {
                "pattern": {"type": "string"},
                "category": {"type": "string"},
                "deleted_keys": {"type": "integer"}
            }
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "time": {"type": "string"},
                "components": {"type": "object", "additionalProperties": true}
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "object", "additionalProperties": true}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Seoul Location Services API",
	Description:      "Proximity search over Seoul public-service datasets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
