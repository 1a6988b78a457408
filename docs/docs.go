// Package docs holds the OpenAPI description served under /swagger/.
// Regenerate with: go generate ./cmd/api
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/admin/users": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Create a user",
				"responses": {
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/users/{userId}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Get a user",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/categories": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Create a category",
				"responses": {
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/events": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Search all events",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/events/{eventId}": {
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Moderate and edit an event",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "eventId (UUID)",
						"name": "eventId",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/categories/{catId}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"categories"
				],
				"summary": "Get a category",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "catId (UUID)",
						"name": "catId",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/users/{userId}/events": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"organizer-events"
				],
				"summary": "Create an event",
				"responses": {
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					}
				]
			},
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"organizer-events"
				],
				"summary": "List the user's events",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/users/{userId}/events/{eventId}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"organizer-events"
				],
				"summary": "Get one of the user's events",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "eventId (UUID)",
						"name": "eventId",
						"in": "path",
						"required": true
					}
				]
			},
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"organizer-events"
				],
				"summary": "Update one of the user's events",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "eventId (UUID)",
						"name": "eventId",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/users/{userId}/events/{eventId}/requests": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "List requests for one of the user's events",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "eventId (UUID)",
						"name": "eventId",
						"in": "path",
						"required": true
					}
				]
			},
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "Confirm or reject pending requests",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "eventId (UUID)",
						"name": "eventId",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/users/{userId}/requests": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "List the user's participation requests",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					}
				]
			},
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "Request participation in an event",
				"responses": {
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Event ID (UUID)",
						"name": "eventId",
						"in": "query",
						"required": true
					}
				]
			}
		},
		"/users/{userId}/requests/{requestId}/cancel": {
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "Cancel a participation request",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "userId (UUID)",
						"name": "userId",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "requestId (UUID)",
						"name": "requestId",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/events": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"public-events"
				],
				"summary": "Search published events",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/events/{eventId}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"public-events"
				],
				"summary": "Get a published event",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"default": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "eventId (UUID)",
						"name": "eventId",
						"in": "path",
						"required": true
					}
				]
			}
		}
	},
	"definitions": {
		"helpers.APIError": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"helpers.APIResponse": {
			"type": "object",
			"properties": {
				"data": {},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and an admin JWT.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Event Publisher API",
	Description:      "Event moderation, participation requests and public event catalogue.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
