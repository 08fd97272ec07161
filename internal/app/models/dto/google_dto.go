package dto

// ImportGoogleCourseRequest imports a Google Classroom course as the roster
type ImportGoogleCourseRequest struct {
	CourseID string `json:"courseId" binding:"required" example:"123456789"`
}

// GoogleCourseQuery holds the course list query parameters
type GoogleCourseQuery struct {
	Page  int    `form:"page"`
	Query string `form:"query"`
}

// GoogleCourseResponse is one Google Classroom course
type GoogleCourseResponse struct {
	ID      string `json:"id" example:"123456789"`
	Name    string `json:"name" example:"Intro to CS"`
	Section string `json:"section,omitempty" example:"Period 2"`
}

// GoogleCourseListResponse is a page of courses
type GoogleCourseListResponse struct {
	Courses    []GoogleCourseResponse `json:"courses"`
	Pagination PaginationInfo         `json:"pagination"`
}

// GoogleAuthorizationResponse tells the client where to authorize Google access
type GoogleAuthorizationResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}
