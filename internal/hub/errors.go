// Copyright 2025 Arion Yau
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

package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrNoNetwork means the default or broadcast address could not be determined
	ErrNoNetwork = errors.New("could not determine network address to use - is there a network?")
	// ErrAddressInUse means another process, usually another hub, holds the xAP port
	ErrAddressInUse = errors.New("address already in use")
	// ErrAlreadyStarted is returned by Start on a hub that has left the uninitialized state
	ErrAlreadyStarted = errors.New("hub already started")
)

// FatalError is a startup or socket failure the hub cannot recover from.
// The process is expected to exit non-zero after reporting it.
type FatalError struct {
	Op   string
	Addr string
	Port int
	Err  error
}

func (e *FatalError) Error() string {
	if errors.Is(e.Err, ErrAddressInUse) {
		return fmt.Sprintf("The xAP port %d on %s is already in use. Is there another hub running?", e.Port, e.Addr)
	}
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is a FatalError
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
