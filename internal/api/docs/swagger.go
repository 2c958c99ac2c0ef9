package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// EnrollResponse represents the mutation envelope for enroll, delete
// and reset endpoints
type EnrollResponse struct {
	Success bool   `json:"success" example:"true"`
	ID      int    `json:"id" example:"0"`
	Name    string `json:"name" example:"Alice"`
	Message string `json:"message,omitempty" example:""`
}

// FaceEntry represents one enrolled identity
type FaceEntry struct {
	ID   int    `json:"id" example:"0"`
	Name string `json:"name" example:"Alice"`
}

// FacesResponse lists the enrolled identity table
type FacesResponse struct {
	Count int         `json:"count" example:"2"`
	Faces []FaceEntry `json:"faces"`
}

// RecognizedNameResponse is the point-in-time identity read
type RecognizedNameResponse struct {
	Name string `json:"name" example:"Alice"`
}

// HealthResponse represents the health probe body
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"0.1.0"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Doorwatch Appliance API",
		Version:     "v0.1.0",
		Description: "Face recognition door appliance: capture, enrollment, identity table administration and live streams",
		Host:        "localhost:8080",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// GET /capture
		endpoint.New(
			endpoint.GET,
			"/capture",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("Capture one frame"),
			endpoint.WithDescription("Acquires the camera with the long snapshot timeout and returns one JPEG frame"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/jpeg")}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "JPEG frame"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "CAMERA_BUSY", Message: "Camera is busy, try again"}, "503", "Service Unavailable"),
				response.New(ErrorResponse{Code: "CAPTURE_FAILED", Message: "Camera capture failed"}, "500", "Internal Server Error"),
			}),
		),

		// POST /enroll
		endpoint.New(
			endpoint.POST,
			"/enroll",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Enroll a face from an uploaded image"),
			endpoint.WithDescription("Scans the upload body for a JPEG image and a name field, then enrolls the detected face"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "200", "Face enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_IMAGE_MARKER", Message: "No JPEG data found in upload"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "TRUNCATED_IMAGE", Message: "JPEG data is truncated"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "FIELD_NOT_FOUND", Message: "Name field not found in form data"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "STORE_FULL", Message: "Identity table is full"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// GET /enroll
		endpoint.New(
			endpoint.GET,
			"/enroll",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Enroll a face from the camera"),
			endpoint.WithDescription("Captures a frame with the medium enroll timeout and enrolls the detected face under the given name"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("name", parameter.Query, parameter.WithDescription("Name for the enrolled identity")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "200", "Face enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "CAMERA_BUSY", Message: "Camera is busy, try again"}, "503", "Service Unavailable"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "STORE_FULL", Message: "Identity table is full"}, "409", "Conflict"),
			}),
		),

		// GET /faces
		endpoint.New(
			endpoint.GET,
			"/faces",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("List enrolled faces"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FacesResponse{}, "200", "Identity table"),
			}),
		),

		// DELETE /faces/{id}
		endpoint.New(
			endpoint.DELETE,
			"/faces/{id}",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Delete one enrolled face"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Slot id of the enrolled identity")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "200", "Face deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "FACE_NOT_FOUND", Message: "Face not found"}, "404", "Not Found"),
			}),
		),

		// GET /delete_all
		endpoint.New(
			endpoint.GET,
			"/delete_all",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Delete all enrolled faces"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "200", "All faces deleted"),
			}),
		),

		// GET /reset_database
		endpoint.New(
			endpoint.GET,
			"/reset_database",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Wipe and rebuild the recognition database"),
			endpoint.WithDescription("Removes the engine feature database and the metadata artifact, then rebuilds the engine from scratch"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "200", "Database reset"),
			}),
		),

		// GET /recognized_name
		endpoint.New(
			endpoint.GET,
			"/recognized_name",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Read the current recognized identity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizedNameResponse{}, "200", "Current identity"),
			}),
		),

		// GET /stream
		endpoint.New(
			endpoint.GET,
			"/stream",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("Live MJPEG stream"),
			endpoint.WithDescription("Continuous multipart/x-mixed-replace JPEG stream"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("multipart/x-mixed-replace")}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "MJPEG stream"),
			}),
		),

		// GET /recognition_stream
		endpoint.New(
			endpoint.GET,
			"/recognition_stream",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Live MJPEG stream with identity header"),
			endpoint.WithDescription("Same as /stream with the current identity attached to every part as X-Face-Name"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("multipart/x-mixed-replace")}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "MJPEG stream"),
			}),
		),

		// GET /health
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("System"),
			endpoint.WithSummary("Health probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "OK"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)
	return sw
}
