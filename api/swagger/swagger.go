package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "StudyVault API",
        "description": "Course-material search and request portal",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Catalog", "description": "Public catalog search, browse, and download"},
        {"name": "Requests", "description": "Material request intake"},
        {"name": "Auth", "description": "Console authentication"},
        {"name": "Admin", "description": "Catalog and request administration"}
    ],
    "paths": {
        "/documents": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Search the catalog",
                "parameters": [
                    {"name": "course_code", "in": "query", "type": "string"},
                    {"name": "course_number", "in": "query", "type": "string"},
                    {"name": "professor", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/browse": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Browse with filter, sort, and pagination",
                "parameters": [
                    {"name": "course_code", "in": "query", "type": "string"},
                    {"name": "course_number", "in": "query", "type": "string"},
                    {"name": "professor", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/options": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Cascading filter options",
                "parameters": [
                    {"name": "course_code", "in": "query", "type": "string"},
                    {"name": "course_number", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/download-url": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Issue a signed download link",
                "parameters": [
                    {"name": "key", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/download": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Stream a document via a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a material request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitMaterialRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation or captcha failure"},
                    "409": {"description": "Duplicate request"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a console user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/documents": {
            "post": {
                "tags": ["Admin"],
                "summary": "Upload a catalog document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "course_code", "in": "formData", "required": true, "type": "string"},
                    {"name": "course_number", "in": "formData", "required": true, "type": "string"},
                    {"name": "professor", "in": "formData", "required": true, "type": "string"},
                    {"name": "date", "in": "formData", "required": true, "type": "string"},
                    {"name": "title", "in": "formData", "type": "string"},
                    {"name": "course_name", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/documents/{key}": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Update document metadata",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Admin"],
                "summary": "Delete a document and its file",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/admin/documents/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export the catalog inventory",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File stream"}
                }
            }
        },
        "/admin/requests": {
            "get": {
                "tags": ["Admin"],
                "summary": "List material requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/requests/{id}": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Delete a handled request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "SubmitMaterialRequest": {
            "type": "object",
            "properties": {
                "course": {"type": "string"},
                "email": {"type": "string"},
                "details": {"type": "string"},
                "captcha_token": {"type": "string"}
            },
            "required": ["course", "captcha_token"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "UpdateDocumentRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "course_code": {"type": "string"},
                "course_number": {"type": "string"},
                "course_name": {"type": "string"},
                "professor": {"type": "string"},
                "date": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
