// Package docs holds the OpenAPI description served at /swagger when
// SWAGGER_ENABLED is set. It mirrors the godoc annotations on the handlers;
// regenerate with:
//
//	swag init -g cmd/studio/main.go -o internal/docs
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
        "/sessions": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Open a session",
                "operationId": "createSession",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/services.Snapshot"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Session snapshot",
                "operationId": "getSession",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Close a session",
                "operationId": "deleteSession",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/prompt": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Edit the prompt",
                "operationId": "setPrompt",
                "parameters": [
                    {"$ref": "#/parameters/sessionID"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PromptRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/image": {
            "get": {
                "produces": ["image/png", "image/jpeg", "image/gif", "image/webp"],
                "tags": ["Sessions"],
                "summary": "Current image bytes",
                "operationId": "getImage",
                "parameters": [
                    {"$ref": "#/parameters/sessionID"},
                    {"name": "If-None-Match", "in": "header", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "304": {"description": "Not Modified"},
                    "404": {"description": "Session not found or no image", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["Workflow"],
                "summary": "Generate an image from the prompt",
                "operationId": "generateImage",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Generation already pending", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Prompt is empty", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/upload": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Workflow"],
                "summary": "Upload an image",
                "operationId": "uploadImage",
                "parameters": [
                    {"$ref": "#/parameters/sessionID"},
                    {"name": "image", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "400": {"description": "Missing or empty file", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "415": {"description": "Not an image", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/caption": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Workflow"],
                "summary": "Caption the current image",
                "operationId": "requestCaption",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Caption already pending", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "No current image", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/recaption": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Workflow"],
                "summary": "Caption the current image again",
                "operationId": "recaption",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Caption already pending", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "No current image", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/seo": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Workflow"],
                "summary": "Generate SEO metadata",
                "operationId": "requestSEO",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "SEO already pending", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "No image or no caption", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/theme": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Toggle light/dark theme",
                "operationId": "toggleTheme",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ThemeResponse"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/events": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["Sessions"],
                "summary": "Snapshot stream",
                "operationId": "sessionEvents",
                "parameters": [{"$ref": "#/parameters/sessionID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Snapshot"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/operations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Operation journal (paginated)",
                "operationId": "listOperations",
                "parameters": [
                    {"$ref": "#/parameters/sessionID"},
                    {"name": "page", "in": "query", "type": "integer", "minimum": 1, "default": 1},
                    {"name": "page_size", "in": "query", "type": "integer", "minimum": 1, "maximum": 100, "default": 20}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListOperationsResponse"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "501": {"description": "Journal disabled", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "parameters": {
        "sessionID": {"name": "id", "in": "path", "required": true, "type": "string", "format": "uuid", "description": "Session ID"}
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "busy"},
                "message": {"type": "string"}
            }
        },
        "handlers.PromptRequest": {
            "type": "object",
            "properties": {"prompt": {"type": "string", "example": "a watercolor fox in the snow"}}
        },
        "handlers.ThemeResponse": {
            "type": "object",
            "properties": {"theme": {"type": "string", "enum": ["dark", "light"]}}
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListOperationsResponse": {
            "type": "object",
            "properties": {
                "operations": {"type": "array", "items": {"$ref": "#/definitions/domain.Operation"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "domain.Operation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "session_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["image", "caption", "seo"]},
                "image_id": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "succeeded", "failed", "discarded"]},
                "error": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"}
            }
        },
        "services.OpState": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["idle", "pending", "succeeded", "failed"]},
                "busy": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "services.Actions": {
            "type": "object",
            "properties": {
                "generate": {"type": "boolean"},
                "upload": {"type": "boolean"},
                "caption": {"type": "boolean"},
                "seo": {"type": "boolean"}
            }
        },
        "services.ImageView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "origin": {"type": "string", "enum": ["generated", "uploaded"]},
                "name": {"type": "string"},
                "mime_type": {"type": "string"},
                "size": {"type": "integer"},
                "uri": {"type": "string"}
            }
        },
        "services.Snapshot": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "version": {"type": "integer"},
                "prompt": {"type": "string"},
                "image": {"$ref": "#/definitions/services.ImageView"},
                "caption": {"type": "string"},
                "posts": {"type": "object", "additionalProperties": {"type": "string"}},
                "seo": {"type": "object", "additionalProperties": {"type": "string"}},
                "theme": {"type": "string", "enum": ["dark", "light"]},
                "operations": {"type": "object", "additionalProperties": {"$ref": "#/definitions/services.OpState"}},
                "actions": {"$ref": "#/definitions/services.Actions"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Content Studio API",
	Description:      "Session-scoped orchestration of image generation, captioning and SEO metadata.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
