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

// Package consensus implements the rule predicates applied to candidate
// headers and blocks. Predicates are pure functions over the candidate plus
// an ancestry view of its parent; they never mutate chain state.
package consensus

// ErrorKind identifies a class of rule violation. It is compared with
// errors.Is through the RuleError wrapper.
type ErrorKind string

// These constants enumerate the rule violations the predicates produce.
const (
	// ErrBlockVersionTooOld indicates the header version is below the
	// minimum the chain accepts.
	ErrBlockVersionTooOld = ErrorKind("ErrBlockVersionTooOld")

	// ErrUnexpectedDifficulty indicates the claimed compact target does not
	// match the required difficulty, is out of the valid target range, or
	// does not parse.
	ErrUnexpectedDifficulty = ErrorKind("ErrUnexpectedDifficulty")

	// ErrHighHash indicates the header hash is above its claimed target, so
	// the proof of work is insufficient.
	ErrHighHash = ErrorKind("ErrHighHash")

	// ErrTimeTooOld indicates the header timestamp is not after the median
	// time of the recent ancestry.
	ErrTimeTooOld = ErrorKind("ErrTimeTooOld")

	// ErrNoTransactions indicates a block with an empty transaction list.
	ErrNoTransactions = ErrorKind("ErrNoTransactions")

	// ErrBlockTooBig indicates the serialized block exceeds the size cap.
	ErrBlockTooBig = ErrorKind("ErrBlockTooBig")

	// ErrBadMerkleRoot indicates the header commitment does not match the
	// computed merkle root of the transactions.
	ErrBadMerkleRoot = ErrorKind("ErrBadMerkleRoot")
)

// Error implements the error interface.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError is a kind-tagged rule violation. Callers match the kind with
// errors.Is(err, ErrHighHash) and read the description for context.
type RuleError struct {
	Err         error
	Description string
}

// Error implements the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the wrapped ErrorKind.
func (e RuleError) Unwrap() error {
	return e.Err
}

func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}
