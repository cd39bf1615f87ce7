// Copyright 2026 The devlogs Authors
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

package opensearch

import (
	"errors"
	"fmt"
)

// ErrAuthenticationFailed indicates the backend rejected the configured
// credentials (HTTP 401/403).
var ErrAuthenticationFailed = errors.New("opensearch: authentication failed")

// IndexNotFoundError indicates the target index does not exist (HTTP 404).
type IndexNotFoundError struct {
	Index string
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("opensearch: index %q does not exist", e.Index)
}

// RequestError indicates the backend rejected the document (HTTP 400).
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	if e.Reason == "" {
		return "opensearch: bad request"
	}
	return fmt.Sprintf("opensearch: bad request: %s", e.Reason)
}

// ConnectionError indicates the backend could not be reached or returned an
// unexpected status.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("opensearch: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("opensearch: %s", e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
