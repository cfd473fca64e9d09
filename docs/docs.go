// Package docs serves the OpenAPI description of the HTTP API. Keep it in
// step with the @-annotations on the handlers.
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
                "tags": ["ops"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/giveaway": {
            "post": {
                "description": "Creates an active giveaway for the channel derived from stream_url",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Start a giveaway",
                "parameters": [
                    {"description": "Giveaway data", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.GiveawayCreateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Giveaway"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/giveaway/active": {
            "get": {
                "description": "Returns null when no giveaway is active",
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Newest active giveaway",
                "parameters": [
                    {"type": "string", "description": "Channel filter", "name": "channel", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Giveaway"}}
                }
            }
        },
        "/giveaway/stats/{channel}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Active giveaway summary for a channel",
                "parameters": [
                    {"type": "string", "description": "Channel", "name": "channel", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GiveawayStats"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/giveaway/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Get a giveaway",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Giveaway"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/giveaway/{id}/stop": {
            "post": {
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Stop a giveaway",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/giveaway/{id}/participants": {
            "get": {
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "List participants in join order",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Participant"}}}
                }
            },
            "delete": {
                "description": "Resets the counter and winner; the active flag is kept",
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Remove all participants",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ClearParticipantsResponse"}}
                }
            }
        },
        "/giveaway/{id}/participant": {
            "post": {
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Register a participant manually",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Username", "name": "username", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ParticipantResponse"}}
                }
            }
        },
        "/giveaway/{id}/winner": {
            "post": {
                "description": "Picks one participant uniformly at random and closes the giveaway",
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Draw a winner",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.WinnerResponse"}},
                    "400": {"description": "No participants", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/giveaway/{id}/chat": {
            "get": {
                "produces": ["application/json"],
                "tags": ["giveaways"],
                "summary": "Latest chat messages, oldest first",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum messages (default 50, max 500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ChatMessage"}}}
                }
            }
        },
        "/chat/message": {
            "post": {
                "description": "Records the message against the channel's active giveaway and registers the sender on a keyword match",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Ingest a chat message",
                "parameters": [
                    {"description": "Chat event", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ChatMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ChatIngestResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/simulate/chat": {
            "post": {
                "description": "Demo aid: a random viewer posts either the keyword or small talk",
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Simulate a chat line",
                "parameters": [
                    {"type": "string", "description": "Giveaway ID, defaults to the newest active one", "name": "giveaway_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ChatMessage"}}
                }
            }
        },
        "/clear-all": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Delete every giveaway, participant and message",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MessageResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.Giveaway": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "stream_url": {"type": "string"},
                "channel_name": {"type": "string"},
                "keyword": {"type": "string"},
                "is_active": {"type": "boolean"},
                "created_at": {"type": "string", "format": "date-time"},
                "winner": {"type": "string"},
                "participants_count": {"type": "integer"}
            }
        },
        "models.GiveawayStats": {
            "type": "object",
            "properties": {
                "giveaway": {"$ref": "#/definitions/models.Giveaway"},
                "participants_recorded": {"type": "integer"}
            }
        },
        "models.Participant": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "joined_at": {"type": "string", "format": "date-time"},
                "giveaway_id": {"type": "string"}
            }
        },
        "models.ChatMessage": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "message": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "is_keyword": {"type": "boolean"},
                "is_system": {"type": "boolean"},
                "giveaway_id": {"type": "string"}
            }
        },
        "dto.GiveawayCreateRequest": {
            "type": "object",
            "required": ["stream_url", "keyword"],
            "properties": {
                "stream_url": {"type": "string", "maxLength": 500},
                "channel_name": {"type": "string", "maxLength": 100},
                "keyword": {"type": "string", "maxLength": 100}
            }
        },
        "dto.ChatMessageRequest": {
            "type": "object",
            "required": ["username", "message", "channel"],
            "properties": {
                "username": {"type": "string", "maxLength": 100},
                "message": {"type": "string", "maxLength": 2000},
                "channel": {"type": "string", "maxLength": 100},
                "keyword": {"type": "string", "maxLength": 100}
            }
        },
        "dto.ChatIngestResponse": {
            "type": "object",
            "properties": {
                "outcome": {"type": "string", "enum": ["registered", "already_registered", "no_match", "no_active_giveaway"]},
                "registered": {"type": "boolean"},
                "is_keyword": {"type": "boolean"},
                "giveaway_id": {"type": "string"},
                "message": {"$ref": "#/definitions/models.ChatMessage"},
                "reason": {"type": "string"}
            }
        },
        "dto.ParticipantResponse": {
            "type": "object",
            "properties": {
                "registered": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "dto.WinnerResponse": {
            "type": "object",
            "properties": {
                "winner": {"type": "string"}
            }
        },
        "dto.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "dto.ClearParticipantsResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "deleted": {"type": "integer"}
            }
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "middleware.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "object"},
                        "request_id": {"type": "string"}
                    }
                },
                "timestamp": {"type": "string", "format": "date-time"},
                "request_id": {"type": "string"},
                "path": {"type": "string"},
                "method": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8001",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Twitch Giveaway API",
	Description:      "Keyword giveaways for Twitch streams: viewers join by typing the keyword in chat.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
