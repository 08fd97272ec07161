package services

import "fmt"

// OrganizationPath is the API location of an organization
func OrganizationPath(slug string) string {
	return fmt.Sprintf("/api/v1/organizations/%s", slug)
}

// RosterPath is the API location of an organization's roster
func RosterPath(slug string) string {
	return OrganizationPath(slug) + "/roster"
}

// GoogleClassroomPath is the course picker of the Google Classroom import
func GoogleClassroomPath(slug string) string {
	return RosterPath(slug) + "/google_classroom"
}
