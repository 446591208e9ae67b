// Package handler exposes the S3 PUT/GET/HEAD subset adapter in front
// of a filestore.Store: path grammar /{namespace}/{path...}, a few
// literal XML sub-resource stubs, and nothing else.
package handler

import (
	"encoding/xml"
	"net/http"
)

// writeXML writes an XML response with the given status code.
func writeXML(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Encode(v)
}

// writeError writes an S3-compatible error response.
func writeError(w http.ResponseWriter, err S3Error) {
	writeXML(w, err.HTTPStatusCode, ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
	})
}

// ErrorResponse is the S3-compatible error response format.
type ErrorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// S3Error represents an S3-compatible error.
type S3Error struct {
	Code           string
	Message        string
	HTTPStatusCode int
}

// Errors this adapter actually produces
// (InputError/NotFound/ChunkingError/StorageError mapped onto the HTTP
// status each kind implies).
var (
	ErrInputError = S3Error{
		Code:           "InvalidArgument",
		Message:        "The request could not be parsed.",
		HTTPStatusCode: http.StatusBadRequest,
	}
	ErrNoSuchKey = S3Error{
		Code:           "NoSuchKey",
		Message:        "The specified key does not exist.",
		HTTPStatusCode: http.StatusNotFound,
	}
	ErrInternalError = S3Error{
		Code:           "InternalError",
		Message:        "We encountered an internal error. Please try again.",
		HTTPStatusCode: http.StatusInternalServerError,
	}
)

// locationConstraintXML, objectLockXML and versioningXML are the
// literal bodies the ?location / ?object-lock / ?versioning
// sub-resources return. They are fixed strings, not structs run
// through encoding/xml, since their bytes are exact and unvarying.
const (
	locationConstraintXML = `<LocationConstraint>whatever</LocationConstraint>`
	objectLockXML         = `<ObjectLockConfiguration />`
	versioningXML         = `<VersioningConfiguration />`
)

func writeLiteralXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write([]byte(body))
}
