package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Exam API",
        "description": "Exam lifecycle and results engine: eligibility, seating, grading, publication",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Exams", "description": "Exam and schedule administration"},
        {"name": "Eligibility", "description": "Attendance and fee based exam eligibility"},
        {"name": "Seating", "description": "Hall seat allocation"},
        {"name": "Results", "description": "Result aggregation and publication"},
        {"name": "Papers", "description": "Question paper versioning"},
        {"name": "Grading", "description": "Percentage to grade resolution"},
        {"name": "ReportCards", "description": "Published report cards and hall tickets"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List exams",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Create exam",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExamRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate exam name"}
                }
            }
        },
        "/exams/{id}/schedules": {
            "get": {
                "tags": ["Exams"],
                "summary": "List subject sittings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Add subject sitting",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/eligibility/{studentId}": {
            "get": {
                "tags": ["Eligibility"],
                "summary": "Evaluate eligibility for one student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/seating": {
            "get": {
                "tags": ["Seating"],
                "summary": "Read the seating plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Seating"],
                "summary": "Generate the seating plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule not in SCHEDULED state"},
                    "422": {"description": "Eligible students exceed hall capacity"}
                }
            }
        },
        "/results/process": {
            "post": {
                "tags": ["Results"],
                "summary": "Recompute a result summary after a mark write",
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/exams/{id}/publish": {
            "post": {
                "tags": ["Results"],
                "summary": "Publish all results for an exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No results to publish"}
                }
            }
        },
        "/schedules/{id}/papers": {
            "post": {
                "tags": ["Papers"],
                "summary": "Upload a question paper version",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "status", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Paper locked"}
                }
            }
        },
        "/schedules/{id}/papers/lock": {
            "post": {
                "tags": ["Papers"],
                "summary": "Lock the current paper version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/papers/download-url": {
            "get": {
                "tags": ["Papers"],
                "summary": "Issue a signed download link for the locked paper",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Paper not locked"}
                }
            }
        },
        "/papers/download": {
            "get": {
                "tags": ["Papers"],
                "summary": "Download a question paper via a signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Paper file"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/grading/resolve": {
            "get": {
                "tags": ["Grading"],
                "summary": "Resolve a percentage to a grade",
                "parameters": [
                    {"name": "percentage", "in": "query", "required": true, "type": "number"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/report-card/{studentId}": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Get a published report card",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Results not published"}
                }
            }
        },
        "/schedules/{id}/hall-ticket/{studentId}": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Get a hall ticket PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF payload"},
                    "403": {"description": "Student not eligible"}
                }
            }
        }
    },
    "definitions": {
        "CreateExamRequest": {
            "type": "object",
            "properties": {
                "academic_year_id": {"type": "string"},
                "name": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"}
            }
        },
        "CreateScheduleRequest": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "string"},
                "exam_date": {"type": "string", "format": "date-time"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "max_marks": {"type": "number"},
                "passing_marks": {"type": "number"}
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
