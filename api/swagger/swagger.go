package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Weekly class timetables: grid editing, teacher and room conflict detection, mass events and exports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Class timetable grid editor and conflict checks"},
        {"name": "Mass Events", "description": "Holidays, suspensions and other school-wide blocks"},
        {"name": "Exports", "description": "Asynchronous CSV and PDF timetable exports"},
        {"name": "Observability", "description": "Metrics snapshot"}
    ],
    "paths": {
        "/timetable/grid": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly time grid",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List classes",
                "parameters": [
                    {"name": "schoolId", "in": "query", "type": "string"},
                    {"name": "gradeLevel", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Class timetable grid",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetable"],
                "summary": "Remove every slot of a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Removed count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/timetable/slots": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Drop or edit a timetable cell",
                "description": "A teacher or room conflict blocks the assignment with 409 unless force is set.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/timetable/moves": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Move a slot to another cell",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "Moved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Source cell empty", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/timetable/slots/{day}/{start}": {
            "delete": {
                "tags": ["Timetable"],
                "summary": "Clear a timetable cell",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "day", "in": "path", "required": true, "type": "string"},
                    {"name": "start", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cleared"},
                    "404": {"description": "Cell empty", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/conflicts/check": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Check a candidate slot for teacher and room conflicts",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/availability": {
            "post": {
                "tags": ["Timetable"],
                "summary": "List every conflict for a teacher and/or room over a range",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly timetable of a teacher across classes",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "schoolId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/mass-events": {
            "post": {
                "tags": ["Mass Events"],
                "summary": "Block a day part for many classes",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MassEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Write failed, nothing applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a timetable export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Exports disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Job not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid, expired or unfinished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AssignSlotRequest": {
            "type": "object",
            "required": ["day", "startTime"],
            "properties": {
                "day": {"type": "string", "example": "Monday"},
                "startTime": {"type": "string", "example": "07:00"},
                "endTime": {"type": "string", "example": "08:30"},
                "subjectId": {"type": "string"},
                "subjectName": {"type": "string"},
                "teacherId": {"type": "string"},
                "teacherName": {"type": "string"},
                "roomId": {"type": "string"},
                "roomName": {"type": "string"},
                "type": {"type": "string", "enum": ["class", "break", "activity"]},
                "activityType": {"type": "string", "enum": ["Lecture", "Break", "Holiday", "Suspension", "Meeting", "Event"]},
                "title": {"type": "string"},
                "force": {"type": "boolean"}
            }
        },
        "MoveSlotRequest": {
            "type": "object",
            "required": ["fromDay", "fromStart", "toDay", "toStart"],
            "properties": {
                "fromDay": {"type": "string"},
                "fromStart": {"type": "string"},
                "toDay": {"type": "string"},
                "toStart": {"type": "string"},
                "force": {"type": "boolean"}
            }
        },
        "ConflictCheckRequest": {
            "type": "object",
            "required": ["classId", "day", "startTime", "endTime"],
            "properties": {
                "classId": {"type": "string"},
                "day": {"type": "string"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "teacherId": {"type": "string"},
                "roomId": {"type": "string"}
            }
        },
        "AvailabilityRequest": {
            "type": "object",
            "required": ["day", "startTime", "endTime"],
            "properties": {
                "day": {"type": "string"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "teacherId": {"type": "string"},
                "roomId": {"type": "string"},
                "excludeClassId": {"type": "string"},
                "schoolId": {"type": "string"}
            }
        },
        "MassEventRequest": {
            "type": "object",
            "required": ["day", "duration", "title", "activityType"],
            "properties": {
                "schoolId": {"type": "string"},
                "gradeLevels": {"type": "array", "items": {"type": "string"}},
                "classIds": {"type": "array", "items": {"type": "string"}},
                "day": {"type": "string"},
                "duration": {"type": "string", "enum": ["WholeDay", "AM", "PM"]},
                "title": {"type": "string"},
                "activityType": {"type": "string", "enum": ["Holiday", "Suspension", "Meeting", "Event", "Break"]},
                "slotMinutes": {"type": "integer"},
                "dryRun": {"type": "boolean"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]},
                "schoolId": {"type": "string"},
                "gradeLevels": {"type": "array", "items": {"type": "string"}},
                "classIds": {"type": "array", "items": {"type": "string"}},
                "teacherId": {"type": "string"}
            }
        },
        "ScheduleConflict": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["teacher", "room"]},
                "message": {"type": "string"},
                "class_id": {"type": "string"},
                "grade_level": {"type": "string"},
                "section": {"type": "string"},
                "slot_id": {"type": "string"},
                "day": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "teacher_id": {"type": "string"},
                "room_id": {"type": "string"}
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
                "status": {"type": "integer"},
                "details": {"$ref": "#/definitions/ScheduleConflict"}
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
