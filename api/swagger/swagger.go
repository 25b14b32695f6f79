package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {"title": "Campus Connect API", "description": "Courses, placements, ambassadors and live sessions for campus communities", "version": "1.0.0"},
    "basePath": "/",
    "schemes": ["http", "https"],
    "securityDefinitions": {"BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}},
    "tags": [
        {"name": "Admin"},
        {"name": "Ambassadors"},
        {"name": "Applications"},
        {"name": "Auth"},
        {"name": "Chapters"},
        {"name": "Content"},
        {"name": "Courses"},
        {"name": "Jobs"},
        {"name": "Notifications"},
        {"name": "Payouts"},
        {"name": "Profiles"},
        {"name": "Resources"},
        {"name": "Sessions"},
        {"name": "Uploads"}
    ],
    "paths": {
        "/health": {
            "get": {"summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {"summary": "Readiness check", "responses": {"200": {"description": "Ready"}, "503": {"description": "Dependency down"}}}
        },
        "/metrics": {
            "get": {"summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/auth/register": {
            "post": {"tags": ["Auth"], "summary": "Register an account", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/auth/login": {
            "post": {"tags": ["Auth"], "summary": "Log in", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/auth/refresh": {
            "post": {"tags": ["Auth"], "summary": "Rotate refresh token", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/auth/logout": {
            "post": {"tags": ["Auth"], "summary": "Revoke refresh token", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/auth/change-password": {
            "post": {"tags": ["Auth"], "summary": "Change password", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/auth/me": {
            "get": {"tags": ["Auth"], "summary": "Current user", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses": {
            "get": {"tags": ["Courses"], "summary": "List courses", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Courses"], "summary": "Create course", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}": {
            "get": {"tags": ["Courses"], "summary": "Get course", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Courses"], "summary": "Update course", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "delete": {"tags": ["Courses"], "summary": "Delete course", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"204": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/structure": {
            "get": {"tags": ["Courses"], "summary": "Course structure", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/enroll": {
            "post": {"tags": ["Courses"], "summary": "Enroll in course", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/chapters": {
            "get": {"tags": ["Chapters"], "summary": "List chapters", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Chapters"], "summary": "Create chapter", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/chapters/reorder": {
            "put": {"tags": ["Chapters"], "summary": "Reorder chapters", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/chapters/{chapterId}": {
            "put": {"tags": ["Chapters"], "summary": "Update chapter", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "chapterId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "delete": {"tags": ["Chapters"], "summary": "Delete chapter", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "chapterId", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"204": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/chapters/{chapterId}/content": {
            "get": {"tags": ["Content"], "summary": "List chapter content", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "chapterId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Content"], "summary": "Create content", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "chapterId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/chapters/{chapterId}/content/{contentId}": {
            "put": {"tags": ["Content"], "summary": "Update content", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "chapterId", "in": "path", "required": true, "type": "string"}, {"name": "contentId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "delete": {"tags": ["Content"], "summary": "Delete content", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "chapterId", "in": "path", "required": true, "type": "string"}, {"name": "contentId", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"204": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/resources": {
            "get": {"tags": ["Resources"], "summary": "List resources", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Resources"], "summary": "Create resource", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/resources/{resourceId}": {
            "delete": {"tags": ["Resources"], "summary": "Delete resource", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "resourceId", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"204": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/courses/{id}/resources/{resourceId}/download": {
            "get": {"tags": ["Resources"], "summary": "Resource download link", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "resourceId", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/enrollments/me": {
            "get": {"tags": ["Courses"], "summary": "My enrollments", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs": {
            "get": {"tags": ["Jobs"], "summary": "Browse jobs", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Jobs"], "summary": "Post a job", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/mine": {
            "get": {"tags": ["Jobs"], "summary": "My postings", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}": {
            "get": {"tags": ["Jobs"], "summary": "Get job", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Jobs"], "summary": "Update job", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "delete": {"tags": ["Jobs"], "summary": "Delete job", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"204": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}/status": {
            "put": {"tags": ["Jobs"], "summary": "Change job status", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}/apply": {
            "post": {"tags": ["Applications"], "summary": "Apply to a job", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}/applications": {
            "get": {"tags": ["Applications"], "summary": "Applicants for a job", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}/applications/bulk": {
            "put": {"tags": ["Applications"], "summary": "Bulk status update", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}/applications/export": {
            "get": {"tags": ["Applications"], "summary": "Export applicants", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}/applications/{appId}": {
            "put": {"tags": ["Applications"], "summary": "Update application status", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "appId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/jobs/{id}/applications/{appId}/interview": {
            "post": {"tags": ["Applications"], "summary": "Schedule interview", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "appId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/applications/me": {
            "get": {"tags": ["Applications"], "summary": "My applications", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/applications/{id}/withdraw": {
            "put": {"tags": ["Applications"], "summary": "Withdraw application", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/applications/{id}/history": {
            "get": {"tags": ["Applications"], "summary": "Status history", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/ambassadors": {
            "post": {"tags": ["Ambassadors"], "summary": "Register as ambassador", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/ambassadors/me": {
            "get": {"tags": ["Ambassadors"], "summary": "Ambassador profile", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Ambassadors"], "summary": "Update ambassador profile", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/ambassadors/me/referrals": {
            "get": {"tags": ["Ambassadors"], "summary": "My referrals", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/ambassadors/leaderboard": {
            "get": {"tags": ["Ambassadors"], "summary": "Leaderboard", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/ambassadors/me/payouts": {
            "post": {"tags": ["Payouts"], "summary": "Request payout", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "get": {"tags": ["Payouts"], "summary": "My payouts", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/referrals/{code}/validate": {
            "get": {"tags": ["Ambassadors"], "summary": "Validate referral code", "produces": ["application/json"], "parameters": [{"name": "code", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/admin/payouts": {
            "get": {"tags": ["Payouts"], "summary": "List payout requests", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/admin/payouts/{id}": {
            "put": {"tags": ["Payouts"], "summary": "Approve or reject payout", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/admin/metrics": {
            "get": {"tags": ["Admin"], "summary": "Runtime metrics snapshot", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/profile/career": {
            "get": {"tags": ["Profiles"], "summary": "My career profile", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Profiles"], "summary": "Upsert career profile", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/students/{id}/profile": {
            "get": {"tags": ["Profiles"], "summary": "Student career profile", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/notifications": {
            "get": {"tags": ["Notifications"], "summary": "List notifications", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/notifications/{id}/read": {
            "put": {"tags": ["Notifications"], "summary": "Mark notification read", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"204": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/notifications/read-all": {
            "put": {"tags": ["Notifications"], "summary": "Mark all read", "produces": ["application/json"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/upload/presigned-url": {
            "post": {"tags": ["Uploads"], "summary": "Presign upload", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/upload/presigned-download": {
            "post": {"tags": ["Uploads"], "summary": "Presign download", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/upload/course-content": {
            "post": {"tags": ["Uploads"], "summary": "Upload course content", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/sessions": {
            "get": {"tags": ["Sessions"], "summary": "Upcoming sessions", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Sessions"], "summary": "Schedule a session", "produces": ["application/json"], "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/sessions/{id}": {
            "get": {"tags": ["Sessions"], "summary": "Get session", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Sessions"], "summary": "Update session", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "delete": {"tags": ["Sessions"], "summary": "Delete session", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"204": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/sessions/{id}/status": {
            "put": {"tags": ["Sessions"], "summary": "Change session status", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/sessions/{id}/state": {
            "get": {"tags": ["Sessions"], "summary": "Questions and polls", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/api/sessions/{id}/ws": {
            "get": {"tags": ["Sessions"], "summary": "Join the realtime relay", "produces": ["application/json"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "security": [{"BearerAuth": []}], "responses": {"101": {"description": "OK"}, "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        }
    },
    "definitions": {
        "Pagination": {"type": "object", "properties": {"page": {"type": "integer"}, "page_size": {"type": "integer"}, "total_count": {"type": "integer"}}},
        "APIError": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "details": {"type": "object"}, "timestamp": {"type": "string", "format": "date-time"}, "requestId": {"type": "string"}}},
        "ResponseEnvelope": {"type": "object", "properties": {"success": {"type": "boolean"}, "data": {"type": "object"}, "error": {"$ref": "#/definitions/APIError"}, "pagination": {"$ref": "#/definitions/Pagination"}, "meta": {"type": "object"}}}
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
