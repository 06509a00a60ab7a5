package identity

import "time"

type CreateEmployeeRequest struct {
	FullName           string  `json:"full_name" binding:"required,max=120"`
	Email              string  `json:"email" binding:"required,email"`
	Role               string  `json:"role" binding:"required"`
	ReportingManagerID *string `json:"reporting_manager_id" binding:"omitempty,uuid"`
}

type GrantAllotmentRequest struct {
	Category string `json:"category" binding:"required"`
	Days     string `json:"days" binding:"required"`
	Year     int    `json:"year" binding:"omitempty,min=2000,max=2100"`
}

type EmployeeResponse struct {
	ID                 string  `json:"id"`
	FullName           string  `json:"full_name"`
	Email              string  `json:"email"`
	Role               string  `json:"role"`
	ReportingManagerID *string `json:"reporting_manager_id,omitempty"`
	IsActive           bool    `json:"is_active"`
	CreatedAt          string  `json:"created_at"`
}

type AllotmentResponse struct {
	EmployeeID string `json:"employee_id"`
	Category   string `json:"category"`
	Year       int    `json:"year"`
	Remaining  string `json:"remaining"`
}

func mapToEmployeeResponse(e Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:        e.ID.String(),
		FullName:  e.FullName,
		Email:     e.Email,
		Role:      e.Role,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.ReportingManagerID != nil {
		id := e.ReportingManagerID.String()
		resp.ReportingManagerID = &id
	}
	return resp
}
