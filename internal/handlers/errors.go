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

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
)

// statusFor maps client errors onto gateway status codes
func statusFor(err error) int {
	var (
		reqErr    *restapi.RequestError
		uploadErr *restapi.UploadError
		submitErr *restapi.SubmissionError
	)

	switch {
	case errors.Is(err, restapi.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &uploadErr):
		if uploadErr.Local {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &submitErr):
		if submitErr.Local {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &reqErr):
		if reqErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(c echo.Context, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.log.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	} else {
		a.log.Warnf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}
