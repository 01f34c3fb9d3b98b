// Package docs registra el documento OpenAPI que sirve /swagger/*.
// Se regenera con: swag init -g cmd/api/main.go -o docs
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
        "/qr/generate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Emite un token de acceso temporal para el paciente autenticado.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["qr"],
                "summary": "Genera un QR de acceso",
                "parameters": [
                    {
                        "description": "Nivel y duración (horas, 5 min a 24 h)",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/accessgrants.generateRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/accessgrants.generateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}}
                }
            }
        },
        "/qr/verify/{token}": {
            "get": {
                "description": "Valida el token y registra la vista. No requiere autenticación.",
                "produces": ["application/json"],
                "tags": ["qr"],
                "summary": "Verifica un token QR",
                "parameters": [
                    {"type": "string", "description": "Token del QR", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/accessgrants.verifyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}},
                    "429": {"description": "Too Many Requests", "schema": {"type": "string"}}
                }
            }
        },
        "/qr/data/{token}/{accessLevel}": {
            "get": {
                "description": "Re-verifica el token (cuenta como vista) y devuelve el payload del nivel concedido.",
                "produces": ["application/json"],
                "tags": ["qr"],
                "summary": "Datos de salud según nivel",
                "parameters": [
                    {"type": "string", "description": "Token del QR", "name": "token", "in": "path", "required": true},
                    {"type": "string", "description": "emergency | basic | full", "name": "accessLevel", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}},
                    "429": {"description": "Too Many Requests", "schema": {"type": "string"}}
                }
            }
        },
        "/qr/active": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lista los grants no expirados del paciente autenticado, más nuevos primero.",
                "produces": ["application/json"],
                "tags": ["qr"],
                "summary": "QRs activos",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/accessgrants.activeGrantResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}}
                }
            }
        },
        "/qr/revoke/{grantID}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["qr"],
                "summary": "Revoca un QR",
                "parameters": [
                    {"type": "string", "description": "ID del grant", "name": "grantID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/accessgrants.statusResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "accessgrants.generateRequest": {
            "type": "object",
            "properties": {
                "access_level": {"type": "string", "example": "emergency"},
                "duration_hours": {"type": "number", "example": 2}
            }
        },
        "accessgrants.generateResponse": {
            "type": "object",
            "properties": {
                "grant_id": {"type": "string"},
                "token": {"type": "string"},
                "share_url": {"type": "string"},
                "access_level": {"type": "string"},
                "expires_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "accessgrants.verifyResponse": {
            "type": "object",
            "properties": {
                "is_valid": {"type": "boolean"},
                "owner_id": {"type": "string"},
                "access_level": {"type": "string"},
                "expires_at": {"type": "string"},
                "owner_display_name": {"type": "string"},
                "view_count": {"type": "integer"}
            }
        },
        "accessgrants.activeGrantResponse": {
            "type": "object",
            "properties": {
                "grant_id": {"type": "string"},
                "access_level": {"type": "string"},
                "token": {"type": "string"},
                "share_url": {"type": "string"},
                "created_at": {"type": "string"},
                "expires_at": {"type": "string"},
                "viewed_at": {"type": "string"},
                "is_viewed": {"type": "boolean"},
                "view_count": {"type": "integer"}
            }
        },
        "accessgrants.statusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Patient Health QR API",
	Description:      "Acceso temporal por QR a datos de salud del paciente, por niveles.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
