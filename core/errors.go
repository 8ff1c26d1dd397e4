// Copyright 2024 The go-vesper Authors
// This file is part of the go-vesper library.
//
// The go-vesper library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-vesper library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-vesper library. If not, see <http://www.gnu.org/licenses/>.

package core

import "errors"

var (
	// ErrPrecondition is wrapped by every error the header chain returns for
	// an insertion that violates the parent/work/height invariants.
	ErrPrecondition = errors.New("header precondition violated")

	// ErrKnownHeader is returned when inserting a header whose hash is
	// already stored.
	ErrKnownHeader = errors.New("header already known")

	// ErrInvalidHandle is returned when an operation receives the zero
	// Handle.
	ErrInvalidHandle = errors.New("invalid header handle")

	// ErrHeightRange is returned by ancestry lookups above the view tip.
	ErrHeightRange = errors.New("height beyond view tip")
)
