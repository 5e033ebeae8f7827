package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classroom Progression API",
        "description": "Reward propagation engine for gamified classrooms",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Progression", "description": "Points, levels, clans, missions, badges and streaks"}
    ],
    "paths": {
        "/progression/behaviors/apply": {
            "post": {
                "tags": ["Progression"],
                "summary": "Apply a behavior to students",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyBehaviorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progression/points": {
            "post": {
                "tags": ["Progression"],
                "summary": "Give or remove points manually",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyPointsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progression/activities/complete": {
            "post": {
                "tags": ["Progression"],
                "summary": "Reward students for completing an activity",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteActivityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progression/streak-milestones": {
            "get": {
                "tags": ["Progression"],
                "summary": "List streak milestones",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/points/history": {
            "get": {
                "tags": ["Progression"],
                "summary": "Point history of a student",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/progress": {
            "get": {
                "tags": ["Progression"],
                "summary": "Level and streak state of a student",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/login": {
            "post": {
                "tags": ["Progression"],
                "summary": "Claim today's login reward",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/streak/milestones/{days}/claim": {
            "post": {
                "tags": ["Progression"],
                "summary": "Claim a mission streak milestone",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "days", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already claimed or not reached", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/missions/{studentMissionId}/claim": {
            "post": {
                "tags": ["Progression"],
                "summary": "Claim the reward of a completed mission",
                "parameters": [
                    {"name": "studentMissionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Mission not claimable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms/{classroomId}/badges/{badgeId}/award": {
            "post": {
                "tags": ["Progression"],
                "summary": "Award a badge manually",
                "parameters": [
                    {"name": "classroomId", "in": "path", "required": true, "type": "string"},
                    {"name": "badgeId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AwardBadgeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Badge already owned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ApplyBehaviorRequest": {
            "type": "object",
            "required": ["classroom_id", "behavior_id", "student_ids"],
            "properties": {
                "classroom_id": {"type": "string"},
                "behavior_id": {"type": "string"},
                "student_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ApplyPointsRequest": {
            "type": "object",
            "required": ["classroom_id", "student_ids", "reason"],
            "properties": {
                "classroom_id": {"type": "string"},
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "xp": {"type": "integer"},
                "hp": {"type": "integer"},
                "gp": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "CompleteActivityRequest": {
            "type": "object",
            "required": ["classroom_id", "activity_type", "student_ids"],
            "properties": {
                "classroom_id": {"type": "string"},
                "activity_type": {"type": "string"},
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "xp": {"type": "integer"},
                "hp": {"type": "integer"},
                "gp": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "AwardBadgeRequest": {
            "type": "object",
            "required": ["student_id"],
            "properties": {
                "student_id": {"type": "string"}
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
