package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classmark API",
        "description": "Grade aggregation, ranking and credential issuance for a single class",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Session issuance for teachers and students"},
        {"name": "Grades", "description": "Per-exam grade record management"},
        {"name": "Results", "description": "Derived results, rankings and class aggregates"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/student/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Student login with name and pin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid name or pin"}
                }
            }
        },
        "/auth/teacher/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Teacher login with the shared pin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TeacherLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid pin"}
                }
            }
        },
        "/auth/session": {
            "get": {
                "tags": ["Auth"],
                "summary": "Describe the current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grade records",
                "parameters": [
                    {"name": "exam", "in": "query", "type": "string"},
                    {"name": "student", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grades"],
                "summary": "Create a grade record",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeRecordRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate student and exam pair"}
                }
            }
        },
        "/grades/{id}": {
            "put": {
                "tags": ["Grades"],
                "summary": "Replace a grade record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeRecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Grades"],
                "summary": "Delete a grade record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No content"}
                }
            }
        },
        "/results/me": {
            "get": {
                "tags": ["Results"],
                "summary": "The logged-in student's result for one exam",
                "parameters": [
                    {"name": "exam", "in": "query", "required": true, "type": "string"},
                    {"name": "narrative", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/me/overview": {
            "get": {
                "tags": ["Results"],
                "summary": "The logged-in student's results across every exam",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{exam}/summary": {
            "get": {
                "tags": ["Results"],
                "summary": "Class-wide aggregate for one exam",
                "parameters": [
                    {"name": "exam", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{exam}/rankings": {
            "get": {
                "tags": ["Results"],
                "summary": "Descending ranking for one exam",
                "parameters": [
                    {"name": "exam", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/credentials/export.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download every issued credential as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports/{student}/card.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a student's report card as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "student", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No records for student"}
                }
            }
        }
    },
    "definitions": {
        "StudentLoginRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "pin": {"type": "string"}
            },
            "required": ["name", "pin"]
        },
        "TeacherLoginRequest": {
            "type": "object",
            "properties": {
                "pin": {"type": "string"}
            },
            "required": ["pin"]
        },
        "GradeRecordRequest": {
            "type": "object",
            "properties": {
                "student_name": {"type": "string"},
                "exam": {"type": "string"},
                "chinese": {"type": "integer"},
                "math": {"type": "integer"},
                "english": {"type": "integer"},
                "science": {"type": "integer"},
                "social": {"type": "integer"},
                "essay": {"type": "integer"}
            },
            "required": ["student_name", "exam"]
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
