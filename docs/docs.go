// Package docs holds the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "sdrelay maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["stream"],
                "summary": "Status stream",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/events": {
            "get": {
                "description": "handshake, then the capability list, then a ping every interval.",
                "produces": ["text/event-stream"],
                "tags": ["stream"],
                "summary": "Event stream",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/generate": {
            "post": {
                "description": "Accepts a JSON-RPC envelope or bare JSON parameters and relays them to the web UI.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["image"],
                "summary": "Generate an image",
                "parameters": [
                    {
                        "description": "Envelope with ImageRequest params",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.Envelope"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.Envelope"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.Envelope"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.Envelope"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.Envelope"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.Envelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Backend health",
                "parameters": [
                    {
                        "type": "string",
                        "description": "identifier echoed in the response",
                        "name": "id",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Envelope"}}
                }
            }
        },
        "/sse": {
            "get": {
                "description": "handshake, then the capability list, then a ping every interval.",
                "produces": ["text/event-stream"],
                "tags": ["stream"],
                "summary": "Event stream",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/txt2img": {
            "post": {
                "description": "Accepts a JSON-RPC envelope or bare JSON parameters and relays them to the web UI.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["image"],
                "summary": "Generate an image",
                "parameters": [
                    {
                        "description": "Envelope with ImageRequest params",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.Envelope"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.Envelope"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "types.Envelope": {
            "type": "object",
            "properties": {
                "jsonrpc": {"type": "string", "example": "2.0"},
                "method": {"type": "string", "example": "generate"},
                "id": {"type": "string", "example": "1"},
                "params": {"type": "object"},
                "result": {},
                "error": {"$ref": "#/definitions/types.RPCError"}
            }
        },
        "types.RPCError": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": -32602},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "sdrelay API",
	Description:      "JSON-RPC relay in front of a Stable Diffusion web UI, with an SSE heartbeat stream.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
