// Package docs holds the swagger spec served at /docs/doc.json.
// Regenerate with `swag init -g cmd/bot/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/health/db": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Database health check",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/v1/notifications": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "List pending notifications",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query", "description": "Max rows"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Clear all notifications",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/notifications/pending/count": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Count pending notifications",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/reconcile": {
            "post": {
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Run reconciliation",
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/v1/events/key/{key}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Get an event by durable key",
                "parameters": [
                    {"type": "string", "name": "key", "in": "path", "required": true, "description": "Event key (uuid)"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/v1/events/{profile}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "List events for a profile",
                "parameters": [
                    {"type": "string", "name": "profile", "in": "path", "required": true, "description": "Profile code (AK, HSR, UMA, ...)"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Gacha Timer Admin API",
	Description:      "Admin and health endpoints for the game-event notification scheduler.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
