package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SchoolPulse Insights API",
        "description": "Read-only engagement analytics over assessments, activities, webinars and app usage",
        "version": "1.0.0"
    },
    "basePath": "/api/v1/analytics",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Analytics", "description": "School and class level engagement rollups"},
        {"name": "Students", "description": "Per-student engagement history and profile"},
        {"name": "Reports", "description": "School-wide report lists and exports"}
    ],
    "paths": {
        "/overview": {
            "get": {
                "tags": ["Analytics"],
                "summary": "School engagement overview",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "days", "in": "query", "type": "integer", "default": 30}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "School not found"}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Per-class engagement summaries",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Single class engagement detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "days", "in": "query", "type": "integer", "default": 30}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found"}
                }
            }
        },
        "/trends": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Daily engagement trend series",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "days", "in": "query", "type": "integer", "default": 30}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Ranked student leaderboard",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "type", "in": "query", "required": true, "type": "string", "enum": ["assessments", "activities", "webinars"]},
                    {"name": "days", "in": "query", "type": "integer", "default": 30},
                    {"name": "page", "in": "query", "type": "integer", "default": 1},
                    {"name": "limit", "in": "query", "type": "integer", "default": 10}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown leaderboard type"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "Paginated roster with engagement columns",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "grade", "in": "query", "type": "string"},
                    {"name": "risk_level", "in": "query", "type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
                    {"name": "page", "in": "query", "type": "integer", "default": 1},
                    {"name": "limit", "in": "query", "type": "integer", "default": 20}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/assessments": {
            "get": {
                "tags": ["Students"],
                "summary": "Student assessment history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/students/{id}/activities": {
            "get": {
                "tags": ["Students"],
                "summary": "Student activity submissions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "SUBMITTED", "VERIFIED", "REJECTED"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/students/{id}/webinars": {
            "get": {
                "tags": ["Students"],
                "summary": "Student webinar attendance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/students/{id}/streak": {
            "get": {
                "tags": ["Students"],
                "summary": "Student daily streak history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "days", "in": "query", "type": "integer", "default": 30}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/students/{id}/profile": {
            "get": {
                "tags": ["Students"],
                "summary": "Merged student engagement profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/assessments": {
            "get": {
                "tags": ["Reports"],
                "summary": "Assessment list with completion stats",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assessments/{templateId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Template report with score distribution",
                "parameters": [
                    {"name": "templateId", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Template not found"}
                }
            }
        },
        "/assessments/{templateId}/students/{studentId}/responses": {
            "get": {
                "tags": ["Reports"],
                "summary": "Per-question responses of one student",
                "parameters": [
                    {"name": "templateId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Template or student not found"}
                }
            }
        },
        "/activities": {
            "get": {
                "tags": ["Reports"],
                "summary": "Activity assignment list with completion stats",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Per-student completion breakdown of one assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Assignment not found"}
                }
            }
        },
        "/webinars": {
            "get": {
                "tags": ["Reports"],
                "summary": "Webinar list with attendance stats",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/webinars/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Per-student attendance breakdown of one webinar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Webinar not found"}
                }
            }
        },
        "/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export an analytics table as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "report", "in": "query", "required": true, "type": "string", "enum": ["overview", "classes", "students"]},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "400": {"description": "Unknown report or format"}
                }
            }
        }
    },
    "definitions": {
        "FamilyCompletion": {
            "type": "object",
            "properties": {
                "done": {"type": "integer"},
                "total": {"type": "integer"},
                "rate": {"type": "number"}
            }
        },
        "RiskDistribution": {
            "type": "object",
            "properties": {
                "low": {"type": "integer"},
                "medium": {"type": "integer"},
                "high": {"type": "integer"}
            }
        },
        "TrendPoint": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "assessmentsPct": {"type": "number"},
                "activitiesPct": {"type": "number"},
                "webinarsPct": {"type": "number"}
            }
        },
        "LeaderboardEntry": {
            "type": "object",
            "properties": {
                "rank": {"type": "integer"},
                "studentId": {"type": "string"},
                "fullName": {"type": "string"},
                "className": {"type": "string"},
                "score": {"type": "number"}
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
