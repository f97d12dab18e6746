package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable Viewer API",
        "description": "Submits timetable problems to the solver and presents their solutions",
        "version": "0.2.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Solver jobs and solution presentation"},
        {"name": "Ops", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness of solver, cache and database",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/timetable/jobs": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Submit a timetable problem",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid problem", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Solver failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/jobs/from-csv": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Submit a timetable problem as CSV files",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "roomsCsv", "in": "formData", "type": "file", "required": true},
                    {"name": "teachersCsv", "in": "formData", "type": "file", "required": true},
                    {"name": "lunchGroupsCsv", "in": "formData", "type": "file", "required": true},
                    {"name": "lessonsCsv", "in": "formData", "type": "file", "required": true},
                    {"name": "classCount", "in": "formData", "type": "integer", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing file or class count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/jobs/{jobId}/fetch": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Load the solution of an existing job",
                "parameters": [
                    {"name": "jobId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Poll status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/jobs/{jobId}/status": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Solver status of a job",
                "parameters": [
                    {"name": "jobId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Job not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/poll": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Current poll status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Timetable"],
                "summary": "Cancel the active poll",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/timetable/solution": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Loaded solution summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No solution loaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/solution/diagnostics": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Hard and soft constraint diagnostics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/timetable/solution/classes/{className}/grid": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly grid of a class",
                "parameters": [
                    {"name": "className", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not in solution", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/solution/classes/{className}/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download the weekly grid of a class",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "className", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/api/v1/timetable/snapshots": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List persisted solutions",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/timetable/snapshots/{jobId}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Persisted solution summary",
                "parameters": [
                    {"name": "jobId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Snapshot not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/snapshots/cache": {
            "delete": {
                "tags": ["Timetable"],
                "summary": "Drop cached snapshot summaries",
                "responses": {"204": {"description": "Purged"}}
            }
        }
    },
    "definitions": {
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
