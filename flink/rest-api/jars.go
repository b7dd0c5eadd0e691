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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ListJars lists all uploaded jars.
// A missing "files" key or an unreadable body yields an empty list.
// Endpoint: GET /jars
func (c *Client) ListJars(ctx context.Context) ([]JarRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/jars", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list jars: %w", err)
	}

	jars := []JarRecord{}

	var listing jarsListResponse
	if err := unmarshalResponse(resp, &listing); err != nil {
		c.debugf("treating unreadable jar listing as empty: %v", err)
		return jars, nil
	}

	for _, raw := range listing.Files {
		var f jarFile
		if err := json.Unmarshal(raw, &f); err != nil || f.ID == "" {
			continue
		}

		record := JarRecord{
			ID:           f.ID,
			Name:         f.Name,
			Uploaded:     f.Uploaded,
			EntryClasses: make([]string, 0, len(f.Entry)),
		}
		for _, e := range f.Entry {
			if e.Name != "" {
				record.EntryClasses = append(record.EntryClasses, e.Name)
			}
		}
		jars = append(jars, record)
	}

	return jars, nil
}

// JarNames maps jar id to file name for every uploaded jar
func (c *Client) JarNames(ctx context.Context) (map[string]string, error) {
	jars, err := c.ListJars(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(jars))
	for _, jar := range jars {
		if jar.Name != "" {
			names[jar.ID] = jar.Name
		}
	}
	return names, nil
}

// EntryClassOf returns the first entry class the server found in the jar
func (c *Client) EntryClassOf(ctx context.Context, jarID string) (string, error) {
	jars, err := c.ListJars(ctx)
	if err != nil {
		return "", err
	}

	for _, jar := range jars {
		if jar.ID != jarID {
			continue
		}
		if len(jar.EntryClasses) == 0 {
			return "", &NotFoundError{Kind: "entry class for jar", ID: jarID}
		}
		return jar.EntryClasses[0], nil
	}

	return "", &NotFoundError{Kind: "jar", ID: jarID}
}

// UploadJar uploads a jar file and returns the id the server assigned to it
// Endpoint: POST /jars/upload
func (c *Client) UploadJar(ctx context.Context, jarPath string) (string, error) {
	info, err := os.Stat(jarPath)
	if err != nil {
		return "", &UploadError{Path: jarPath, Local: true, Err: err}
	}
	if info.IsDir() {
		return "", &UploadError{Path: jarPath, Local: true, Err: fmt.Errorf("%s is a directory", jarPath)}
	}

	file, err := os.Open(jarPath)
	if err != nil {
		return "", &UploadError{Path: jarPath, Local: true, Err: err}
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("jarfile", filepath.Base(jarPath))
	if err != nil {
		return "", &UploadError{Path: jarPath, Local: true, Err: fmt.Errorf("failed to create form file: %w", err)}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", &UploadError{Path: jarPath, Local: true, Err: fmt.Errorf("failed to copy file: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return "", &UploadError{Path: jarPath, Local: true, Err: fmt.Errorf("failed to finish form: %w", err)}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/jars/upload", body, writer.FormDataContentType())
	if err != nil {
		return "", &UploadError{Path: jarPath, Err: err}
	}

	var uploadResp jarUploadResponse
	if err := unmarshalResponse(resp, &uploadResp); err != nil {
		return "", &UploadError{Path: jarPath, Err: err}
	}

	if uploadResp.Status != "success" {
		return "", &UploadError{Path: jarPath, Status: uploadResp.Status}
	}
	if uploadResp.Filename == "" {
		return "", &UploadError{Path: jarPath, Status: uploadResp.Status, Err: fmt.Errorf("response has no filename")}
	}

	return jarIDFromFilename(uploadResp.Filename), nil
}

// jarIDFromFilename strips the server side directory from an upload filename
func jarIDFromFilename(filename string) string {
	return filename[strings.LastIndex(filename, "/")+1:]
}

// DeleteJar deletes an uploaded jar
// Endpoint: DELETE /jars/:jarid
func (c *Client) DeleteJar(ctx context.Context, jarID string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/jars/"+escape(jarID), nil, "")
	if err != nil {
		return fmt.Errorf("failed to delete jar %s: %w", jarID, err)
	}
	discardResponse(resp)

	return nil
}

// RunJar starts a job from an uploaded jar and returns its job id
// Endpoint: POST /jars/:jarid/run
func (c *Client) RunJar(ctx context.Context, jarID string, req RunRequest) (string, error) {
	if req.Parallelism < 0 {
		return "", &SubmissionError{JarID: jarID, Local: true, Reason: fmt.Sprintf("parallelism must be positive, got %d", req.Parallelism)}
	}

	parallelism := req.Parallelism
	if parallelism == 0 {
		parallelism = DefaultParallelism
	}

	savepointPath := req.SavepointPath
	if savepointPath == "" {
		savepointPath = c.savepointPath
	}

	entryClass := req.EntryClass
	if entryClass == "" {
		var err error
		entryClass, err = c.EntryClassOf(ctx, jarID)
		if err != nil {
			return "", err
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := [][2]string{
		{"allowNonRestoredState", strconv.FormatBool(req.AllowNonRestoredState)},
		{"parallelism", strconv.Itoa(parallelism)},
		{"programArg", req.ProgramArgs},
		{"entry-class", entryClass},
	}
	if savepointPath != "" {
		fields = append(fields, [2]string{"savepointPath", savepointPath})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return "", &SubmissionError{JarID: jarID, Local: true, Reason: "failed to build form", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return "", &SubmissionError{JarID: jarID, Local: true, Reason: "failed to build form", Err: err}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/jars/"+escape(jarID)+"/run", body, writer.FormDataContentType())
	if err != nil {
		return "", fmt.Errorf("failed to run jar %s: %w", jarID, err)
	}

	var runResp map[string]interface{}
	if err := unmarshalResponse(resp, &runResp); err != nil {
		return "", &SubmissionError{JarID: jarID, Reason: "unreadable response", Err: err}
	}

	jobID, _ := runResp["jobid"].(string)
	if jobID == "" {
		return "", &SubmissionError{JarID: jarID, Reason: "response has no job id", Response: runResp}
	}

	return jobID, nil
}
