// Package docs holds the Swagger specification served at /swagger.
package docs

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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/api/market": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Get the current market snapshot",
                "parameters": [
                    {"type": "integer", "name": "min", "in": "query", "description": "Minimum number of coins considered sufficient"},
                    {"type": "string", "name": "q", "in": "query", "description": "Filter coins by identifier, symbol or name"},
                    {"type": "boolean", "name": "diag", "in": "query", "description": "Log skipped upstream records"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/api/news": {
            "get": {
                "produces": ["application/json"],
                "tags": ["news"],
                "summary": "Get recent crypto news",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/api/sentiment": {
            "get": {
                "produces": ["application/json"],
                "tags": ["news"],
                "summary": "Get aggregate market sentiment",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/api/coins": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "List valid coin identifiers",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/api/history/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Get persisted price history for a coin",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true, "description": "Coin identifier (e.g., bitcoin)"},
                    {"type": "integer", "name": "limit", "in": "query", "description": "Number of points (default 100, max 1000)"},
                    {"type": "string", "name": "from", "in": "query", "description": "Range start, RFC 3339 (requires to)"},
                    {"type": "string", "name": "to", "in": "query", "description": "Range end, RFC 3339 (requires from)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"type": "object"}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object"}}
                }
            }
        },
        "/api/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Inspect the fetch pipeline",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/api/admin/cache/clear": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Clear every cached payload",
                "security": [{"ApiKeyAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object"}}
                }
            }
        },
        "/api/admin/ratelimits/clear": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Clear rate-limit records",
                "security": [{"ApiKeyAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CoinLens API",
	Description:      "Cache-first access layer over CoinGecko market data and NewsAPI headlines",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
