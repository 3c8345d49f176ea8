package api

import "studentservices-api/internal/common/validation"

// Payload schemas. Field-level business rules (email format, deadline in
// the future, lengths) are enforced by the services; the schemas only
// reject bodies of the wrong shape before they are decoded.
var (
	// Public submissions may carry staff-only fields; they are ignored, so
	// the schema leaves them unconstrained.
	publicRequestSchema = validation.MustCompile("public_request", `{
  "type": "object",
  "required": ["service", "client_name", "client_email", "project_title", "project_description", "deadline"],
  "properties": {
    "service": {"type": "integer", "minimum": 1},
    "client_name": {"type": "string"},
    "client_email": {"type": "string"},
    "client_phone": {"type": "string"},
    "project_title": {"type": "string"},
    "project_description": {"type": "string"},
    "deadline": {"type": "string"},
    "budget": {"type": "string"},
    "attachments": {"type": "string"}
  }
}`)

	createRequestSchema = validation.MustCompile("create_request", `{
  "type": "object",
  "required": ["service", "client_name", "client_email", "project_title", "project_description", "deadline"],
  "properties": {
    "service": {"type": "integer", "minimum": 1},
    "client_name": {"type": "string"},
    "client_email": {"type": "string"},
    "client_phone": {"type": "string"},
    "project_title": {"type": "string"},
    "project_description": {"type": "string"},
    "deadline": {"type": "string"},
    "budget": {"type": "string"},
    "priority": {"type": "string", "enum": ["low", "normal", "high", "urgent"]},
    "attachments": {"type": "string"},
    "notes": {"type": "string"}
  }
}`)

	updateRequestSchema = validation.MustCompile("update_request", `{
  "type": "object",
  "properties": {
    "client_phone": {"type": "string"},
    "project_title": {"type": "string"},
    "project_description": {"type": "string"},
    "deadline": {"type": "string"},
    "budget": {"type": "string"},
    "status": {"type": "string", "enum": ["pending", "in_progress", "completed", "cancelled"]},
    "priority": {"type": "string", "enum": ["low", "normal", "high", "urgent"]},
    "notes": {"type": "string"},
    "attachments": {"type": "string"}
  }
}`)

	statusSchema = validation.MustCompile("status_change", `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"type": "string", "enum": ["pending", "in_progress", "completed", "cancelled"]},
    "notes": {"type": "string"}
  }
}`)

	assignSchema = validation.MustCompile("assign", `{
  "type": "object",
  "required": ["user_id"],
  "properties": {
    "user_id": {"type": ["integer", "null"]}
  }
}`)

	prioritySchema = validation.MustCompile("priority_change", `{
  "type": "object",
  "required": ["priority"],
  "properties": {
    "priority": {"type": "string", "enum": ["low", "normal", "high", "urgent"]}
  }
}`)

	bulkStatusSchema = validation.MustCompile("bulk_status", `{
  "type": "object",
  "required": ["request_ids", "status"],
  "properties": {
    "request_ids": {"type": "array", "minItems": 1, "items": {"type": "integer"}},
    "status": {"type": "string", "enum": ["pending", "in_progress", "completed", "cancelled"]}
  }
}`)

	bulkAssignSchema = validation.MustCompile("bulk_assign", `{
  "type": "object",
  "required": ["request_ids"],
  "properties": {
    "request_ids": {"type": "array", "minItems": 1, "items": {"type": "integer"}},
    "user_id": {"type": ["integer", "null"]}
  }
}`)

	bulkActionSchema = validation.MustCompile("bulk_action", `{
  "type": "object",
  "required": ["request_ids", "type"],
  "properties": {
    "request_ids": {"type": "array", "minItems": 1, "items": {"type": "integer"}},
    "type": {"type": "string", "enum": ["status", "priority", "assign", "delete"]},
    "data": {"type": "object"}
  }
}`)

	idsSchema = validation.MustCompile("ids", `{
  "type": "object",
  "required": ["ids"],
  "properties": {
    "ids": {"type": "array", "minItems": 1, "items": {"type": "integer"}},
    "value": {"type": "boolean"}
  }
}`)

	reorderSchema = validation.MustCompile("reorder", `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "sort_order"],
        "properties": {
          "id": {"type": "integer"},
          "sort_order": {"type": "integer"}
        }
      }
    }
  }
}`)

	contactSchema = validation.MustCompile("contact", `{
  "type": "object",
  "required": ["name", "email", "subject", "message"],
  "properties": {
    "name": {"type": "string"},
    "email": {"type": "string"},
    "phone": {"type": "string"},
    "inquiry_type": {"type": "string"},
    "subject": {"type": "string"},
    "message": {"type": "string"}
  }
}`)

	respondSchema = validation.MustCompile("mark_responded", `{
  "type": "object",
  "properties": {
    "response_notes": {"type": "string"}
  }
}`)

	loginSchema = validation.MustCompile("login", `{
  "type": "object",
  "required": ["username", "password"],
  "properties": {
    "username": {"type": "string", "minLength": 1},
    "password": {"type": "string", "minLength": 1}
  }
}`)

	profileSchema = validation.MustCompile("profile", `{
  "type": "object",
  "properties": {
    "email": {"type": "string"},
    "first_name": {"type": "string"},
    "last_name": {"type": "string"}
  }
}`)

	testSendSchema = validation.MustCompile("test_send", `{
  "type": "object",
  "required": ["email_type"],
  "properties": {
    "email_type": {"type": "string", "enum": ["confirmation", "status_update", "admin_notification", "overdue_alert", "urgent_alert"]},
    "language": {"type": "string", "enum": ["en", "ar"]},
    "request_id": {"type": "integer"}
  }
}`)

	categorySchema = validation.MustCompile("category", `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 100},
    "description": {"type": "string"},
    "slug": {"type": "string"},
    "parent": {"type": ["integer", "null"]},
    "is_active": {"type": "boolean"},
    "sort_order": {"type": "integer"}
  }
}`)

	serviceSchema = validation.MustCompile("service", `{
  "type": "object",
  "required": ["category", "title", "description"],
  "properties": {
    "category": {"type": "integer"},
    "title": {"type": "string", "minLength": 1, "maxLength": 200},
    "description": {"type": "string"},
    "short_description": {"type": "string", "maxLength": 300},
    "price_range": {"type": "string"},
    "delivery_time": {"type": "string"},
    "features": {"type": "array", "items": {"type": "string"}},
    "is_active": {"type": "boolean"},
    "sort_order": {"type": "integer"}
  }
}`)

	portfolioSchema = validation.MustCompile("portfolio_item", `{
  "type": "object",
  "required": ["title", "description", "category", "completion_date"],
  "properties": {
    "title": {"type": "string", "minLength": 1, "maxLength": 200},
    "description": {"type": "string"},
    "category": {"type": "integer"},
    "image": {"type": "string"},
    "client_type": {"type": "string"},
    "completion_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}"},
    "technologies": {"type": "array", "items": {"type": "string"}},
    "project_duration": {"type": "string"},
    "is_featured": {"type": "boolean"},
    "is_active": {"type": "boolean"},
    "sort_order": {"type": "integer"}
  }
}`)
)
