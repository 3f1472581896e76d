// Package docs holds the swagger descriptor of the HTTP API. It is served
// by the web server when built with -tags=swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/modules": {
            "get": {
                "description": "Settings of every module exposing at least one, keyed by module name.",
                "produces": ["application/json"],
                "tags": ["modules"],
                "summary": "List module settings",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/types.ModuleSettings"}
                    }
                }
            }
        },
        "/modules/{moduleName}": {
            "post": {
                "description": "Applies the settings, saves the module record and restarts the module. Unknown module names are ignored.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["modules"],
                "summary": "Update module settings",
                "parameters": [
                    {"type": "string", "description": "Module name", "name": "moduleName", "in": "path", "required": true},
                    {
                        "description": "Settings to apply",
                        "name": "settings",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/types.Setting"}}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "tags": ["status"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Registry status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
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
        "types.ModuleSettings": {
            "type": "object",
            "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/types.Setting"}}
        },
        "types.ModuleStatus": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "error": {"type": "string"},
                "name": {"type": "string", "example": "Web Server"},
                "required": {"type": "boolean"},
                "started": {"type": "boolean"}
            }
        },
        "types.Setting": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Port"},
                "type": {"type": "string", "enum": ["text", "link", "boolean", "tags"], "example": "text"},
                "value": {"type": "string", "example": "4000"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "modules": {"type": "array", "items": {"$ref": "#/definitions/types.ModuleStatus"}},
                "state": {"type": "string", "example": "ready"}
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
	Title:            "botd API",
	Description:      "Module settings and status of the Twitch bot.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
