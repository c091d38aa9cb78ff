package devsim

import "github.com/swaggo/swag"

// SwaggerInfo holds the OpenAPI document served under /swagger/doc.json.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "rgbctl device simulator",
	Description:      "Event-stream endpoints of an RGB controller, served without hardware.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/sse": {
            "get": {
                "description": "Streams events for the comma separated targets. Unknown names are ignored; no known name means the sse target only.",
                "produces": ["text/event-stream"],
                "tags": ["events"],
                "summary": "Subscribe to device events",
                "parameters": [
                    {"type": "string", "example": "console,line_sensor", "description": "Comma separated targets", "name": "targets", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/sse/push": {
            "post": {
                "description": "Publishes a JSON message verbatim, or wraps text in a device event envelope.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Inject an event",
                "parameters": [
                    {"description": "Event to publish", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.PushRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PushResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "clients": {"type": "integer", "example": 1},
                "status": {"type": "string", "example": "ok"},
                "uptime_ms": {"type": "integer", "example": 15342}
            }
        },
        "types.PushRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "object"},
                "target": {"type": "string", "example": "console"},
                "text": {"type": "string", "example": "hello from the bench"}
            }
        },
        "types.PushResponse": {
            "type": "object",
            "properties": {
                "delivered": {"type": "integer", "example": 2},
                "target": {"type": "string", "example": "console"}
            }
        }
    }
}`
