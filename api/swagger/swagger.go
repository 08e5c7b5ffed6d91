package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance API",
        "description": "Attendance session verification and membership service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and token management"},
        {"name": "Sessions", "description": "Student session list and join flow"},
        {"name": "Teacher", "description": "Attendance session lifecycle"},
        {"name": "Admin", "description": "History, corrections, import and export"},
        {"name": "Courses", "description": "Course management"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/active": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List joinable sessions",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/attempt": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Open a verification attempt",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Attempt opened"},
                    "403": {"description": "Not enrolled"},
                    "409": {"description": "Already joined or attempt in progress"}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Abandon the verification attempt",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Discarded"}
                }
            }
        },
        "/sessions/{id}/attempt/sms": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Confirm the SMS factor",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Confirmed"},
                    "400": {"description": "Verification failed"},
                    "502": {"description": "Collaborator unreachable"}
                }
            }
        },
        "/sessions/{id}/attempt/face": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Confirm the face factor",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Confirmed"},
                    "400": {"description": "Verification failed"},
                    "502": {"description": "Collaborator unreachable"}
                }
            }
        },
        "/sessions/{id}/commit": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Join the session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Attendance recorded"},
                    "400": {"description": "Factors incomplete"}
                }
            }
        },
        "/teacher/courses": {
            "get": {
                "tags": ["Teacher"],
                "summary": "List the teacher's courses",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teacher/sessions": {
            "post": {
                "tags": ["Teacher"],
                "summary": "Open an attendance session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Session opened"},
                    "409": {"description": "Session already running"}
                }
            }
        },
        "/teacher/sessions/current": {
            "get": {
                "tags": ["Teacher"],
                "summary": "Resolve the running session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Teacher"],
                "summary": "Close the running session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Closed"},
                    "409": {"description": "Already completed"}
                }
            }
        },
        "/teacher/sessions/current/participants": {
            "get": {
                "tags": ["Teacher"],
                "summary": "List committed participants",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/sessions": {
            "get": {
                "tags": ["Admin"],
                "summary": "Full attendance history",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/sessions/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Per-student session breakdown",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Session not found"}
                }
            },
            "put": {
                "tags": ["Admin"],
                "summary": "Rewrite a session's participants",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/admin/sessions/import": {
            "post": {
                "tags": ["Admin"],
                "summary": "Import legacy session records",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Import summary"},
                    "400": {"description": "Invalid payload"}
                }
            }
        },
        "/admin/sessions/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export attendance history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/admin/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Code already exists"}
                }
            }
        },
        "/admin/courses/{code}": {
            "put": {
                "tags": ["Courses"],
                "summary": "Update course assignments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Course not found"}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List user accounts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string", "enum": ["ADMIN", "TEACHER", "STUDENT"]},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create a user account",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already exists"}
                }
            }
        },
        "/admin/users/{id}": {
            "put": {
                "tags": ["Users"],
                "summary": "Update a user account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "User not found"}
                }
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Delete a user account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "User not found"}
                }
            }
        },
        "/admin/users/{id}/face": {
            "post": {
                "tags": ["Users"],
                "summary": "Upload a student's face-enrollment photo",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Enrollment saved"},
                    "400": {"description": "No usable face in photo"},
                    "404": {"description": "User not found"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
