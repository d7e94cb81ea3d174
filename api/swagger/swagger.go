package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SGAC API",
        "description": "Academic administration API: semesters, groups, lab campaigns, attendance, grades and reservations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and session management"},
        {"name": "Users", "description": "User administration"},
        {"name": "Semesters", "description": "Academic term management"},
        {"name": "Courses", "description": "Course catalog and evaluations"},
        {"name": "Classrooms", "description": "Physical rooms and availability"},
        {"name": "Groups", "description": "Theory and laboratory groups"},
        {"name": "Schedules", "description": "Weekly schedule slots and conflict checks"},
        {"name": "Sessions", "description": "Derived session calendars"},
        {"name": "Enrollments", "description": "Student enrollment lifecycle"},
        {"name": "Attendance", "description": "Attendance sheets and history"},
        {"name": "Grades", "description": "Evaluations and grade batches"},
        {"name": "Campaigns", "description": "Laboratory enrollment campaigns"},
        {"name": "Reservations", "description": "Ad hoc classroom reservations"},
        {"name": "Stats", "description": "Registrar statistics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/semesters": {
            "get": {
                "tags": ["Semesters"],
                "summary": "List semesters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/campaigns/{id}/status": {
            "get": {
                "tags": ["Campaigns"],
                "summary": "Campaign status with per-lab occupancy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reservations": {
            "post": {
                "tags": ["Reservations"],
                "summary": "Request a classroom reservation",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rule violations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Violation": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "violations": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Violation"}
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
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
