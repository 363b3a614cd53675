package views

import "github.com/vaayushanti/bagspec/cmd/bagspec/models"

// LoginPage is rendered by GET and failed POST /admin/login
type LoginPage struct {
	Title    string
	Username string
	Error    string
}

// DashboardPage is the admin sender page
type DashboardPage struct {
	Title    string
	Username string
	BagTypes []models.BagType
}

// FormPage is the client specification form. Current is nil until the
// client has submitted once.
type FormPage struct {
	Title    string
	Token    string
	Request  *models.Request
	Current  *models.Response
	BagTypes []models.BagType
}

// SubmissionsPage lists every response, superseded ones included
type SubmissionsPage struct {
	Title     string
	Responses []*models.Response
	Current   int
}

// InvalidLinkPage is shown for unknown tokens
type InvalidLinkPage struct {
	Title string
}

// FormLinkEmail is the body data for the link sent to a client
type FormLinkEmail struct {
	FormURL      string
	PONumber     string
	ContactEmail string
}

// SubmissionEmail is the body data for both submission notices
type SubmissionEmail struct {
	Response *models.Response
	FormURL  string
	BagCount int
}
