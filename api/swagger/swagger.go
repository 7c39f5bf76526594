package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Pitch Engagement API",
        "description": "Shareable pitches with anonymised view tracking and engagement analytics",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Pitches", "description": "Owner-side pitch management"},
        {"name": "Share", "description": "Public share links"},
        {"name": "Analytics", "description": "View statistics and exports"}
    ],
    "paths": {
        "/pitches": {
            "get": {
                "tags": ["Pitches"],
                "summary": "List pitches",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer", "maximum": 100},
                    {"name": "sortBy", "in": "query", "type": "string", "enum": ["created_date", "updated_date", "title", "company", "view_count", "last_viewed", "id"]},
                    {"name": "sortOrder", "in": "query", "type": "string", "enum": ["asc", "desc"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "searchFields", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["draft", "published", "viewed", "multiple_views"]},
                    {"name": "company", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Pitches"],
                "summary": "Create pitch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePitchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pitches/{id}": {
            "get": {
                "tags": ["Pitches"],
                "summary": "Get pitch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Pitches"],
                "summary": "Update pitch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePitchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Pitches"],
                "summary": "Delete pitch and its views",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/pitches/{id}/publish": {
            "post": {
                "tags": ["Pitches"],
                "summary": "Publish draft pitch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pitches/{id}/analytics/stats": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Pitch view statistics",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pitches/{id}/analytics/detailed": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Detailed pitch analytics",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "days", "in": "query", "type": "integer", "maximum": 365}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pitches/{id}/analytics/returning": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Returning viewer check",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "visitor", "in": "query", "required": true, "type": "string"},
                    {"name": "hours", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pitches/{id}/analytics/export": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Export pitch analytics",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "days", "in": "query", "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file", "schema": {"type": "file"}}
                }
            }
        },
        "/analytics/recent": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Recent views across pitches",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer", "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/system": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Instrumentation snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/share/{token}": {
            "get": {
                "tags": ["Share"],
                "summary": "Open shared pitch and record a view",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown token or draft pitch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreatePitchRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string", "maxLength": 200},
                "name": {"type": "string"},
                "company": {"type": "string"},
                "email": {"type": "string", "format": "email"},
                "summary": {"type": "string"}
            }
        },
        "UpdatePitchRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "name": {"type": "string"},
                "company": {"type": "string"},
                "email": {"type": "string", "format": "email"},
                "summary": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "hasNext": {"type": "boolean"},
                "hasPrev": {"type": "boolean"}
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
