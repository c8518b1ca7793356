// Package docs holds the OpenAPI document served at /swagger/index.html.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/auth/login": {
            "post": {
                "description": "Authenticates with email and password. Sets the session cookie and returns a bearer token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Login",
                "operationId": "login",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LoginResponse"}},
                    "400": {"description": "Malformed body or validation failure", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "401": {"description": "Invalid email or password", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "403": {"description": "Banned or rate limited", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "502": {"description": "Authentication provider failure", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign up",
                "operationId": "signup",
                "parameters": [
                    {"description": "Account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.SignupResponse"}},
                    "400": {"description": "Malformed body or validation failure", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Logout",
                "operationId": "logout",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        },
        "/auth/session": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current session",
                "operationId": "session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionResponse"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Admin only. Without page or page_size the full list is returned.",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "List users",
                "operationId": "listUsers",
                "parameters": [
                    {"type": "integer", "description": "Page (1-based)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "page_size", "in": "query"},
                    {"type": "string", "description": "ETag from a previous response", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}}},
                    "304": {"description": "Not Modified"},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "403": {"description": "Not an administrator", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Get a user",
                "operationId": "getUser",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Partially updates a user. Non-admins may only update themselves and cannot change roles.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Update a user",
                "operationId": "updateUser",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Malformed body or validation failure", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "403": {"description": "Not allowed to change this user", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "409": {"description": "Email already in use", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Delete a user",
                "operationId": "deleteUser",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.DeleteResult"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "403": {"description": "Not allowed to delete this user", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        },
        "/admin/revoke-sessions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Revoke every session",
                "operationId": "revokeAllSessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SuccessResponse"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "403": {"description": "Not an administrator", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        },
        "/admin/revoke-session/{userId}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Revoke a user's sessions",
                "operationId": "revokeUserSessions",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "User ID", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SuccessResponse"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "403": {"description": "Not an administrator", "schema": {"$ref": "#/definitions/apperr.Response"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/apperr.Response"}}
                }
            }
        }
    },
    "definitions": {
        "apperr.Body": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 404},
                "type": {"type": "string", "example": "NOT_FOUND"},
                "domain": {"type": "string", "example": "USER"},
                "message": {"type": "string", "example": "User with ID 42 not found."},
                "timestamp": {"type": "string", "example": "2025-01-02T15:04:05.000Z"},
                "details": {"type": "object", "additionalProperties": true}
            }
        },
        "apperr.Response": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/apperr.Body"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "USER"]},
                "emailVerified": {"type": "boolean"},
                "image": {"type": "string"},
                "banned": {"type": "boolean"},
                "banReason": {"type": "string"},
                "banExpires": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string", "example": "jane@example.com"},
                "password": {"type": "string", "minLength": 6, "example": "s3cret!"}
            }
        },
        "handlers.SignupRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string", "example": "jane@example.com"},
                "name": {"type": "string", "minLength": 2, "example": "Jane Doe"},
                "password": {"type": "string", "maxLength": 100, "minLength": 6, "example": "s3cret!"}
            }
        },
        "handlers.UpdateUserRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string", "minLength": 2},
                "role": {"type": "string", "enum": ["ADMIN", "USER"]}
            }
        },
        "handlers.LoginResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Login successful"},
                "data": {"$ref": "#/definitions/services.AuthResponse"}
            }
        },
        "handlers.SignupResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Signup successful"},
                "data": {"$ref": "#/definitions/services.AuthResponse"}
            }
        },
        "handlers.SessionResponse": {
            "type": "object",
            "properties": {
                "session": {
                    "type": "object",
                    "properties": {
                        "id": {"type": "string"},
                        "expiresAt": {"type": "string"}
                    }
                },
                "user": {"$ref": "#/definitions/services.UserInfo"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Signout successful"}
            }
        },
        "handlers.SuccessResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "message": {"type": "string", "example": "All sessions revoked successfully"}
            }
        },
        "services.AuthResponse": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "object",
                    "properties": {
                        "accessToken": {"type": "string"},
                        "expiresIn": {"type": "integer", "example": 604800}
                    }
                },
                "user": {"$ref": "#/definitions/services.UserInfo"}
            }
        },
        "services.UserInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "emailVerified": {"type": "boolean"}
            }
        },
        "services.DeleteResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "message": {"type": "string", "example": "User deleted successfully."}
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Go Auth Backend API",
	Description:      "Session authentication and user management. Every failure uses the {\"error\":{...}} envelope.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
