// Copyright 2025 Andrei Grigoriu
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package restapi

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every *NotFoundError via errors.Is
var ErrNotFound = errors.New("not found")

// RequestError is a transport failure (StatusCode 0) or an HTTP error status
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		if e.Body == "" {
			return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
		}
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// UploadError reports a jar that could not be uploaded: the local file is
// missing or the server did not answer with status "success". Local is set
// when the request never left the client.
type UploadError struct {
	Path   string
	Status string
	Local  bool
	Err    error
}

func (e *UploadError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("failed to upload jar %s: %v", e.Path, e.Err)
	case e.Status != "":
		return fmt.Sprintf("failed to upload jar %s: server reported status %q", e.Path, e.Status)
	default:
		return fmt.Sprintf("failed to upload jar %s: server reported no status", e.Path)
	}
}

func (e *UploadError) Unwrap() error { return e.Err }

// NotFoundError reports a jar, job or entry class the server does not know
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SubmissionError reports a jar run that did not yield a job id. Local is
// set when the request was rejected before it was sent.
type SubmissionError struct {
	JarID    string
	Reason   string
	Local    bool
	Response map[string]interface{}
	Err      error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("failed to run jar %s: %s", e.JarID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// statusCode returns the HTTP status carried by a *RequestError in err's chain, or 0
func statusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
